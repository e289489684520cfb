package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"netpong/internal/lobby"
	"netpong/internal/netwrk"
	"netpong/internal/pong"
)

// Host is the only interface the server binds to.
const Host = "127.0.0.1"

// Recorder persists frames and events of the running match.
type Recorder interface {
	RecordFrame(tick uint64, payload []byte) error
	RecordEvent(kind string, data any) error
}

// Publisher receives every tick's snapshot as JSON.
type Publisher interface {
	Publish(payload []byte)
}

type Options struct {
	Port       int
	TickRate   float64
	Session    netwrk.SessionConfig
	Geometry   pong.Geometry
	Recorder   Recorder
	Spectators Publisher
}

// Server owns the listener, the lobby and the game. It runs the accept loop and
// the tick loop and dispatches every session's messages.
type Server struct {
	opts     Options
	codec    netwrk.Codec
	listener net.Listener
	lobby    *lobby.Lobby
	game     *pong.Game
	loop     *pong.Loop

	seq      atomic.Uint64
	ticks    atomic.Uint64
	sessions sync.WaitGroup
}

func New(opts Options) *Server {
	if opts.Session.Codec == nil {
		opts.Session.Codec = netwrk.JSONCodec{}
	}
	s := &Server{
		opts:  opts,
		codec: opts.Session.Codec,
		game:  pong.NewGame(opts.Geometry),
	}
	s.lobby = lobby.CreateLobby(s.game)
	s.lobby.OnSeats(s.seatsChanged)
	s.loop = pong.NewLoop(opts.TickRate, func(time.Duration) { s.tick() })
	return s
}

func (s *Server) Lobby() *lobby.Lobby { return s.lobby }

func (s *Server) Game() *pong.Game { return s.game }

// Listen binds the loopback listener. Port 0 picks a free port.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(Host, fmt.Sprint(s.opts.Port))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = l
	slog.Info("listening", slog.String("addr", l.Addr().String()), slog.String("codec", s.codec.Name()))
	return nil
}

func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run serves until ctx is cancelled, then closes every session and waits for
// their loops to finish.
func (s *Server) Run(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.acceptLoop(gctx) })
	g.Go(func() error { return s.loop.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down", slog.Int("sessions", s.lobby.Len()))
		return s.listener.Close()
	})
	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}

	s.lobby.CloseAll()
	s.sessions.Wait()
	slog.Info("server stopped")
	return err
}

func (s *Server) acceptLoop(ctx context.Context) error {
	var backoff time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			backoff = min(max(2*backoff, 5*time.Millisecond), time.Second)
			slog.Error("accept failed", slog.Any("error", err), slog.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0
		s.startSession(ctx, conn)
	}
}

func (s *Server) startSession(ctx context.Context, conn net.Conn) {
	sess := netwrk.NewSession(conn, s.seq.Add(1), s.opts.Session)
	slog.Info("session opened", slog.String("session", sess.ID().String()), slog.String("remote", sess.RemoteAddr()))
	s.record("connect", map[string]any{"session": sess.ID().String(), "remote": sess.RemoteAddr()})

	s.lobby.Add(sess)
	s.sessions.Add(1)
	go func() {
		defer s.sessions.Done()
		sess.Run(ctx, s)
	}()
}

// HandleMessage dispatches one decoded frame from sess.
func (s *Server) HandleMessage(sess *netwrk.Session, kind netwrk.Kind, payload []byte) error {
	switch kind {
	case netwrk.KindInputState, netwrk.KindEnterRequest, netwrk.KindLeaveRequest, netwrk.KindPing:
	default:
		slog.Debug("ignoring message", slog.String("session", sess.ID().String()), slog.String("kind", kind.String()))
		return nil
	}

	msg, err := sess.Codec().Unmarshal(kind, payload)
	if err != nil {
		return err
	}

	switch m := msg.(type) {
	case netwrk.InputState:
		// Observers' input is kept too; only seated sessions are read by the tick.
		sess.SetLatestInput(m)
	case netwrk.EnterRequest:
		sess.SetName(strings.TrimSpace(m.Name))
		slog.Info("player entered", slog.String("session", sess.ID().String()), slog.String("name", sess.Name()), slog.Int("role", sess.Role()))
	case netwrk.LeaveRequest:
		sess.SendAndClose(netwrk.LeaveResponse{})
		return netwrk.ErrLeave
	case netwrk.Ping:
		return ignoreClosed(sess.Send(netwrk.Pong{}))
	}
	return nil
}

// SessionClosed removes sess and reassigns seats. It runs once per session.
func (s *Server) SessionClosed(sess *netwrk.Session, err error) {
	attrs := []any{slog.String("session", sess.ID().String()), slog.String("name", sess.Name())}
	switch {
	case err == nil, errors.Is(err, netwrk.ErrLeave):
		slog.Info("session left", attrs...)
	case isDisconnect(err):
		slog.Info("session disconnected", attrs...)
	default:
		slog.Warn("session dropped", append(attrs, slog.Any("error", err))...)
	}
	s.lobby.Remove(sess)
	s.record("disconnect", map[string]any{"session": sess.ID().String()})
}

// tick advances the game once and fans the snapshot out to every session.
func (s *Server) tick() {
	in1, in2 := s.lobby.Inputs()
	s.game.Advance(pong.Input(in1), pong.Input(in2))
	snap := SnapshotMessage(s.game.Snapshot())

	payload, err := s.codec.Marshal(snap)
	if err != nil {
		slog.Error("could not encode snapshot", slog.Any("error", err))
		return
	}
	s.lobby.Broadcast(netwrk.KindUpdateSnapshot, payload)

	n := s.ticks.Add(1)
	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.RecordFrame(n, payload); err != nil {
			slog.Warn("could not record frame", slog.Uint64("tick", n), slog.Any("error", err))
		}
	}
	if s.opts.Spectators != nil {
		if _, ok := s.codec.(netwrk.JSONCodec); !ok {
			if payload, err = (netwrk.JSONCodec{}).Marshal(snap); err != nil {
				return
			}
		}
		s.opts.Spectators.Publish(payload)
	}
}

// Ticks counts snapshots produced so far.
func (s *Server) Ticks() uint64 { return s.ticks.Load() }

func (s *Server) seatsChanged(seats []lobby.Seat, phase pong.Phase) {
	roles := make(map[string]int, len(seats))
	for _, seat := range seats {
		roles[seat.ID.String()] = seat.Role
	}
	s.record("seats", map[string]any{"roles": roles, "phase": phase.String()})
}

func (s *Server) record(kind string, data any) {
	if s.opts.Recorder == nil {
		return
	}
	if err := s.opts.Recorder.RecordEvent(kind, data); err != nil {
		slog.Warn("could not record event", slog.String("event", kind), slog.Any("error", err))
	}
}

// SnapshotMessage converts a game snapshot to its wire form.
func SnapshotMessage(snap pong.Snapshot) netwrk.UpdateSnapshot {
	return netwrk.UpdateSnapshot{
		P1X:      snap.P1.X,
		P1Y:      snap.P1.Y,
		P2X:      snap.P2.X,
		P2Y:      snap.P2.Y,
		BallX:    snap.Ball.X,
		BallY:    snap.Ball.Y,
		Score1:   snap.Score1,
		Score2:   snap.Score2,
		WithP1:   snap.WithP1,
		WithP2:   snap.WithP2,
		WithBall: snap.WithBall,
	}
}

func isDisconnect(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, netwrk.ErrShortFrame) || errors.Is(err, io.EOF)
}

func ignoreClosed(err error) error {
	if errors.Is(err, netwrk.ErrSessionClosed) || errors.Is(err, netwrk.ErrQueueFull) {
		return nil
	}
	return err
}
