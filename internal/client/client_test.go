package client

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netpong/internal/netwrk"
	"netpong/internal/renderer"
)

type fakeConn struct {
	mu     sync.Mutex
	inputs []netwrk.InputState
	pings  int
	left   chan struct{}
	once   sync.Once
	closed bool
	// ignoreLeave makes Run keep going after Leave.
	ignoreLeave bool
}

func newFakeConn() *fakeConn { return &fakeConn{left: make(chan struct{})} }

func (f *fakeConn) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.left:
		if f.ignoreLeave {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}
}

func (f *fakeConn) SendInput(up, down bool) error {
	f.mu.Lock()
	f.inputs = append(f.inputs, netwrk.InputState{Up: up, Down: down})
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) Leave() error {
	f.once.Do(func() { close(f.left) })
	return nil
}

func (f *fakeConn) Ping() error {
	f.mu.Lock()
	f.pings++
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) sent() []netwrk.InputState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]netwrk.InputState(nil), f.inputs...)
}

func TestHeldKeysDecay(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var h HeldKeys
	assert.Equal(t, netwrk.InputState{}, h.State(now))

	h.Press(renderer.Up, now)
	assert.Equal(t, netwrk.InputState{Up: true}, h.State(now.Add(100*time.Millisecond)))
	assert.Equal(t, netwrk.InputState{}, h.State(now.Add(HoldDecay)))

	h.Press(renderer.UpArrow, now)
	h.Press(renderer.DownArrow, now.Add(10*time.Millisecond))
	assert.Equal(t, netwrk.InputState{Down: true}, h.State(now.Add(20*time.Millisecond)), "down releases up")

	h.Press(renderer.Unknown, now.Add(20*time.Millisecond))
	assert.Equal(t, netwrk.InputState{Down: true}, h.State(now.Add(30*time.Millisecond)))
}

func TestValidName(t *testing.T) {
	name, err := ValidName("  alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	for _, bad := range []string{"", "   ", "two words", "a:b", "abcdefghijklmnopqrstuvwxyz"} {
		_, err := ValidName(bad)
		assert.ErrorIs(t, err, ErrBadName, bad)
	}
}

func TestGameSendsHeldInputThenLeaves(t *testing.T) {
	conn := newFakeConn()
	keys, typing := io.Pipe()
	defer typing.Close()

	done := make(chan error, 1)
	go func() { done <- Game(context.Background(), conn, keys) }()

	_, err := typing.Write([]byte("w"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		sent := conn.sent()
		return len(sent) == 2 && sent[0] == netwrk.InputState{Up: true} && sent[1] == netwrk.InputState{}
	}, 2*time.Second, 10*time.Millisecond, "press then release after the hold decays")

	_, err = typing.Write([]byte("q"))
	require.NoError(t, err)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Game did not return after leaving")
	}
}

func TestGameStopsWithContext(t *testing.T) {
	conn := newFakeConn()
	keys, typing := io.Pipe()
	defer typing.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Game(ctx, conn, keys) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Game did not stop")
	}
}

func TestGameClosesWhenLeaveIsNotConfirmed(t *testing.T) {
	conn := newFakeConn()
	conn.ignoreLeave = true
	keys, typing := io.Pipe()
	defer typing.Close()

	done := make(chan error, 1)
	go func() { done <- Game(context.Background(), conn, keys) }()
	_, err := typing.Write([]byte{3})
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(leaveTimeout + 2*time.Second):
		t.Fatal("Game did not give up on leave")
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.True(t, conn.closed)
}
