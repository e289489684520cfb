package netwrk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderSize is the 4 byte big-endian payload length plus the 1 byte kind.
const HeaderSize = 5

// DefaultMaxPayload rejects length fields that can only come from a corrupt stream.
const DefaultMaxPayload = 64 << 10

var (
	ErrFrameTooLarge = errors.New("frame payload exceeds limit")
	ErrShortFrame    = errors.New("connection closed mid-frame")
	ErrUnknownKind   = errors.New("unknown message kind")
)

// AppendFrame appends the framed form of payload to dst.
func AppendFrame(dst []byte, kind Kind, payload []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	dst = append(dst, byte(kind))
	return append(dst, payload...)
}

// Encode returns len(payload) ++ kind ++ payload.
func Encode(kind Kind, payload []byte) []byte {
	return AppendFrame(make([]byte, 0, HeaderSize+len(payload)), kind, payload)
}

// WriteFrame writes one frame to w. Callers using a buffered writer flush themselves.
func WriteFrame(w io.Writer, kind Kind, payload []byte) error {
	var header [HeaderSize]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(payload)))
	header[4] = byte(kind)
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame blocks until one whole frame is available on r and returns its kind and
// undecoded payload. A stream that ends cleanly before any header byte returns io.EOF.
// A stream that ends anywhere else returns ErrShortFrame. maxPayload <= 0 uses
// DefaultMaxPayload.
func ReadFrame(r io.Reader, maxPayload int) (Kind, []byte, error) {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, fmt.Errorf("%w: header", ErrShortFrame)
		}
		return 0, nil, err
	}

	length := binary.BigEndian.Uint32(header[:4])
	kind := Kind(header[4])
	if uint64(length) > uint64(maxPayload) {
		return kind, nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, maxPayload)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return kind, nil, fmt.Errorf("%w: payload of %s", ErrShortFrame, kind)
		}
		return kind, nil, err
	}
	return kind, payload, nil
}
