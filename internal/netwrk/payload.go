package netwrk

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// Codec turns catalog messages into frame payloads and back.
type Codec interface {
	Name() string
	Marshal(msg Message) ([]byte, error)
	Unmarshal(kind Kind, payload []byte) (Message, error)
}

// CodecByName resolves the PayloadCodec configuration value.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSONCodec{}, nil
	case "proto", "protobuf":
		return ProtoCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown payload codec %q", name)
	}
}

// JSONCodec writes camelCase field names. Decoding matches field names
// case-insensitively, so PlayerNumber, playerNumber and PLAYERNUMBER all land.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("marshal: nil message")
	}
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(kind Kind, payload []byte) (Message, error) {
	v, err := newMessage(kind)
	if err != nil {
		return nil, err
	}
	// Peers that send nothing for the empty messages still decode.
	if len(payload) == 0 {
		return deref(v), nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return deref(v), nil
}

// ProtoCodec encodes messages in protobuf wire format with fixed field numbers.
// Integers are zigzag varints, so off-field ball positions stay small.
type ProtoCodec struct{}

func (ProtoCodec) Name() string { return "proto" }

func (ProtoCodec) Marshal(msg Message) ([]byte, error) {
	var b []byte
	switch m := msg.(type) {
	case EnterRequest:
		b = appendString(b, 1, m.Name)
	case EnterResponse:
		b = appendInt(b, 1, m.PlayerNumber)
	case LeaveRequest, LeaveResponse, Ping, Pong:
	case InputState:
		b = appendBool(b, 1, m.Up)
		b = appendBool(b, 2, m.Down)
	case UpdateSnapshot:
		b = appendInt(b, 1, m.P1X)
		b = appendInt(b, 2, m.P1Y)
		b = appendInt(b, 3, m.P2X)
		b = appendInt(b, 4, m.P2Y)
		b = appendInt(b, 5, m.BallX)
		b = appendInt(b, 6, m.BallY)
		b = appendInt(b, 7, m.Score1)
		b = appendInt(b, 8, m.Score2)
		b = appendBool(b, 9, m.WithP1)
		b = appendBool(b, 10, m.WithP2)
		b = appendBool(b, 11, m.WithBall)
	default:
		return nil, fmt.Errorf("marshal: unsupported message %T", msg)
	}
	return b, nil
}

func (ProtoCodec) Unmarshal(kind Kind, payload []byte) (Message, error) {
	if _, err := newMessage(kind); err != nil {
		return nil, err
	}
	f, err := consumeFields(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	switch kind {
	case KindEnterRequest:
		return EnterRequest{Name: string(f.bytes[1])}, nil
	case KindEnterResponse:
		return EnterResponse{PlayerNumber: f.intAt(1)}, nil
	case KindLeaveRequest:
		return LeaveRequest{}, nil
	case KindLeaveResponse:
		return LeaveResponse{}, nil
	case KindInputState:
		return InputState{Up: f.boolAt(1), Down: f.boolAt(2)}, nil
	case KindUpdateSnapshot:
		return UpdateSnapshot{
			P1X:      f.intAt(1),
			P1Y:      f.intAt(2),
			P2X:      f.intAt(3),
			P2Y:      f.intAt(4),
			BallX:    f.intAt(5),
			BallY:    f.intAt(6),
			Score1:   f.intAt(7),
			Score2:   f.intAt(8),
			WithP1:   f.boolAt(9),
			WithP2:   f.boolAt(10),
			WithBall: f.boolAt(11),
		}, nil
	case KindPing:
		return Ping{}, nil
	case KindPong:
		return Pong{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
	}
}

func appendInt(b []byte, num protowire.Number, v int) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v)))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// wireFields holds the last value seen for each field number; unknown fields are skipped.
type wireFields struct {
	varints map[protowire.Number]uint64
	bytes   map[protowire.Number][]byte
}

func (f wireFields) intAt(num protowire.Number) int {
	return int(protowire.DecodeZigZag(f.varints[num]))
}

func (f wireFields) boolAt(num protowire.Number) bool {
	return protowire.DecodeBool(f.varints[num])
}

func consumeFields(b []byte) (wireFields, error) {
	f := wireFields{
		varints: make(map[protowire.Number]uint64),
		bytes:   make(map[protowire.Number][]byte),
	}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return f, protowire.ParseError(n)
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return f, protowire.ParseError(n)
			}
			f.varints[num] = v
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return f, protowire.ParseError(n)
			}
			f.bytes[num] = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return f, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return f, nil
}
