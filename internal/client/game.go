package client

import (
	"context"
	"io"
	"log/slog"
	"time"

	"netpong/internal/netwrk"
	"netpong/internal/renderer"
)

const (
	inputInterval = 20 * time.Millisecond
	pingInterval  = 5 * time.Second
	leaveTimeout  = 2 * time.Second
)

// Conn is the part of *netwrk.Client the play loop drives.
type Conn interface {
	Run(ctx context.Context) error
	SendInput(up, down bool) error
	Leave() error
	Ping() error
	Close() error
}

// Game plays until the server confirms a leave, the connection fails or ctx
// ends. Keys are read from keys. Callbacks on c must be installed before
// calling Game.
func Game(ctx context.Context, c Conn, keys io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	actions := make(chan renderer.UiAction, 16)
	go readKeys(ctx, keys, actions)

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	inputs := time.NewTicker(inputInterval)
	defer inputs.Stop()
	pings := time.NewTicker(pingInterval)
	defer pings.Stop()

	var (
		held    HeldKeys
		sent    netwrk.InputState
		leaving <-chan time.Time
	)
	for {
		select {
		case err := <-runErr:
			return err
		case <-leaving:
			slog.Warn("server did not confirm leave, closing")
			c.Close()
			return nil
		case a, ok := <-actions:
			if !ok {
				actions = nil
				continue
			}
			switch a {
			case renderer.Quit, renderer.Interrupt:
				if leaving == nil {
					slog.Info("leaving")
					if err := c.Leave(); err != nil {
						return err
					}
					leaving = time.After(leaveTimeout)
				}
			default:
				held.Press(a, time.Now())
			}
		case now := <-inputs.C:
			cur := held.State(now)
			if cur == sent {
				continue
			}
			if err := c.SendInput(cur.Up, cur.Down); err != nil {
				return err
			}
			sent = cur
		case <-pings.C:
			if err := c.Ping(); err != nil {
				slog.Debug("ping failed", slog.Any("error", err))
			}
		}
	}
}

// readKeys closes actions when keys is exhausted.
func readKeys(ctx context.Context, keys io.Reader, actions chan<- renderer.UiAction) {
	defer close(actions)
	buf := make([]byte, 16)
	for {
		n, err := keys.Read(buf)
		for _, a := range renderer.ProcessInput(buf[:n]) {
			select {
			case actions <- a:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				slog.Debug("key reader stopped", slog.Any("error", err))
			}
			return
		}
	}
}

// Attach installs callbacks on c that draw every snapshot and role change.
func Attach(c *netwrk.Client, view *renderer.Renderer) {
	c.OnSnapshot = func(s netwrk.UpdateSnapshot) {
		if err := view.Render(s); err != nil {
			slog.Debug("render failed", slog.Any("error", err))
		}
	}
	c.OnRole = func(role int) {
		slog.Info("role assigned", slog.String("role", renderer.RoleName(role)))
		if err := view.SetRole(role); err != nil {
			slog.Debug("render failed", slog.Any("error", err))
		}
	}
	c.OnPong = func() { slog.Debug("pong") }
}
