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
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrQueueFull     = errors.New("outbound queue full")
	// ErrLeave ends the reader loop without closing the connection. The writer
	// closes it once the queued LeaveResponse has been flushed.
	ErrLeave = errors.New("session left")
)

const (
	DefaultQueueSize    = 256
	DefaultWriteTimeout = 5 * time.Second
)

// Handler receives every decoded frame of a session and is told exactly once
// when the session's reader has stopped.
type Handler interface {
	HandleMessage(s *Session, kind Kind, payload []byte) error
	SessionClosed(s *Session, err error)
}

type SessionConfig struct {
	Codec        Codec
	QueueSize    int
	WriteTimeout time.Duration
	MaxPayload   int
}

type outbound struct {
	kind       Kind
	payload    []byte
	closeAfter bool
}

// Session owns one accepted connection. Run drives its reader on the calling
// goroutine and its writer on a second one.
type Session struct {
	id        uuid.UUID
	seq       uint64
	createdAt time.Time
	conn      net.Conn
	cfg       SessionConfig

	qmu     sync.Mutex
	queue   []outbound
	ready   chan struct{}
	dropped atomic.Uint64

	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
	running    atomic.Bool

	role atomic.Int32

	mu    sync.Mutex
	input InputState
	name  string
}

func NewSession(conn net.Conn, seq uint64, cfg SessionConfig) *Session {
	if cfg.Codec == nil {
		cfg.Codec = JSONCodec{}
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.MaxPayload <= 0 {
		cfg.MaxPayload = DefaultMaxPayload
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	return &Session{
		id:         uuid.New(),
		seq:        seq,
		createdAt:  time.Now(),
		conn:       conn,
		cfg:        cfg,
		queue:      make([]outbound, 0, cfg.QueueSize),
		ready:      make(chan struct{}, 1),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

// Joined returns the creation instant and the accept sequence used to break ties.
func (s *Session) Joined() (time.Time, uint64) { return s.createdAt, s.seq }

func (s *Session) RemoteAddr() string {
	if s.conn == nil || s.conn.RemoteAddr() == nil {
		return ""
	}
	return s.conn.RemoteAddr().String()
}

func (s *Session) Codec() Codec { return s.cfg.Codec }

func (s *Session) Role() int { return int(s.role.Load()) }

func (s *Session) SetRole(role int) { s.role.Store(int32(role)) }

func (s *Session) LatestInput() InputState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// SetLatestInput replaces the cached input. Last write wins.
func (s *Session) SetLatestInput(in InputState) {
	s.mu.Lock()
	s.input = in
	s.mu.Unlock()
}

func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Session) SetName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// Done is closed once the session starts tearing down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Send encodes msg with the session's codec and queues it.
func (s *Session) Send(msg Message) error {
	payload, err := s.cfg.Codec.Marshal(msg)
	if err != nil {
		return err
	}
	return s.enqueue(outbound{kind: msg.Kind(), payload: payload})
}

// SendPayload queues an already encoded payload. The payload is shared, not copied.
func (s *Session) SendPayload(kind Kind, payload []byte) error {
	return s.enqueue(outbound{kind: kind, payload: payload})
}

// SendAndClose queues msg as the last message; the writer closes the connection after it.
func (s *Session) SendAndClose(msg Message) error {
	payload, err := s.cfg.Codec.Marshal(msg)
	if err != nil {
		s.Close()
		return err
	}
	return s.enqueue(outbound{kind: msg.Kind(), payload: payload, closeAfter: true})
}

// enqueue never blocks. A full queue evicts its oldest snapshot; later snapshots
// supersede it. A full queue holding no snapshot marks a consumer that cannot
// keep up and the session is closed through the normal disconnect path.
func (s *Session) enqueue(item outbound) error {
	s.qmu.Lock()
	select {
	case <-s.done:
		s.qmu.Unlock()
		return ErrSessionClosed
	default:
	}
	if len(s.queue) >= s.cfg.QueueSize {
		i := slices.IndexFunc(s.queue, func(o outbound) bool { return o.kind == KindUpdateSnapshot })
		if i < 0 {
			s.qmu.Unlock()
			slog.Warn("outbound queue full, dropping session",
				slog.String("session", s.id.String()),
				slog.Int("capacity", s.cfg.QueueSize))
			s.Close()
			return ErrQueueFull
		}
		s.queue = slices.Delete(s.queue, i, i+1)
		if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
			slog.Debug("outbound queue full, superseded snapshot dropped",
				slog.String("session", s.id.String()),
				slog.Uint64("dropped", n))
		}
	}
	s.queue = append(s.queue, item)
	s.qmu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
	return nil
}

// DroppedSnapshots counts snapshots evicted from a full queue.
func (s *Session) DroppedSnapshots() uint64 { return s.dropped.Load() }

// Queued reports how many messages wait for the writer.
func (s *Session) Queued() int {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	return len(s.queue)
}

func (s *Session) dequeue() (outbound, bool) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if len(s.queue) == 0 {
		return outbound{}, false
	}
	item := s.queue[0]
	s.queue[0] = outbound{}
	s.queue = s.queue[1:]
	return item, true
}

// Close is idempotent. Closing the connection unblocks the reader.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			s.conn.Close()
		}
	})
}

// Run blocks until the session ends. h.SessionClosed is called exactly once before
// Run waits for the writer and returns.
func (s *Session) Run(ctx context.Context, h Handler) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("session %s already running", s.id)
	}
	stop := context.AfterFunc(ctx, s.Close)
	defer stop()

	go s.writeLoop()

	err := s.readLoop(h)
	if !errors.Is(err, ErrLeave) {
		s.Close()
	}
	h.SessionClosed(s, err)
	<-s.writerDone
	return err
}

func (s *Session) readLoop(h Handler) error {
	r := bufio.NewReader(s.conn)
	for {
		kind, payload, err := ReadFrame(r, s.cfg.MaxPayload)
		if err != nil {
			return err
		}
		if err := h.HandleMessage(s, kind, payload); err != nil {
			return err
		}
	}
}

func (s *Session) writeLoop() {
	defer close(s.writerDone)
	w := bufio.NewWriter(s.conn)
	for {
		select {
		case <-s.done:
			return
		case <-s.ready:
		}
		for {
			item, ok := s.dequeue()
			if !ok {
				break
			}
			if s.cfg.WriteTimeout > 0 {
				s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			}
			err := WriteFrame(w, item.kind, item.payload)
			if err == nil {
				err = w.Flush()
			}
			if err != nil {
				slog.Debug("session write failed",
					slog.String("session", s.id.String()),
					slog.Any("error", err))
				s.Close()
				return
			}
			if item.closeAfter {
				s.Close()
				return
			}
		}
	}
}
