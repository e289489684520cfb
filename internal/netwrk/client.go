package netwrk

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
)

// Client is the player side of the protocol. Set the callbacks before calling Run.
type Client struct {
	conn       net.Conn
	codec      Codec
	maxPayload int

	wmu sync.Mutex
	w   *bufio.Writer

	role atomic.Int32

	OnSnapshot func(UpdateSnapshot)
	OnRole     func(role int)
	OnPong     func()
}

// Dial connects to the server and announces name with an EnterRequest.
func Dial(ctx context.Context, addr, name string, codec Codec) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	c := NewClient(conn, codec)
	if err := c.send(EnterRequest{Name: name}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enter: %w", err)
	}
	return c, nil
}

// NewClient wraps an established connection without sending anything.
func NewClient(conn net.Conn, codec Codec) *Client {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &Client{
		conn:       conn,
		codec:      codec,
		maxPayload: DefaultMaxPayload,
		w:          bufio.NewWriter(conn),
	}
}

// Role is the last seat the server announced.
func (c *Client) Role() int { return int(c.role.Load()) }

func (c *Client) SendInput(up, down bool) error {
	return c.send(InputState{Up: up, Down: down})
}

// Leave asks the server to end the session; Run returns nil once it answers.
func (c *Client) Leave() error {
	return c.send(LeaveRequest{})
}

func (c *Client) Ping() error {
	return c.send(Ping{})
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Run receives until LeaveResponse (nil), the context ends, or the stream fails.
func (c *Client) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	r := bufio.NewReader(c.conn)
	for {
		kind, payload, err := ReadFrame(r, c.maxPayload)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		msg, err := c.codec.Unmarshal(kind, payload)
		if errors.Is(err, ErrUnknownKind) {
			slog.Debug("ignoring unknown message kind", slog.Any("kind", kind))
			continue
		}
		if err != nil {
			return err
		}

		switch m := msg.(type) {
		case UpdateSnapshot:
			if c.OnSnapshot != nil {
				c.OnSnapshot(m)
			}
		case EnterResponse:
			c.role.Store(int32(m.PlayerNumber))
			if c.OnRole != nil {
				c.OnRole(m.PlayerNumber)
			}
		case Pong:
			if c.OnPong != nil {
				c.OnPong()
			}
		case LeaveResponse:
			return nil
		default:
			slog.Debug("unexpected message from server", slog.Any("kind", kind))
		}
	}
}

func (c *Client) send(msg Message) error {
	payload, err := c.codec.Marshal(msg)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := WriteFrame(c.w, msg.Kind(), payload); err != nil {
		return err
	}
	return c.w.Flush()
}
