package renderer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netpong/internal/ansii"
	"netpong/internal/netwrk"
	"netpong/internal/pong"
)

func fixedSize(cols, rows int) SizeFunc {
	return func() (int, int, error) { return cols, rows, nil }
}

func TestFrameDrawsVisibleEntities(t *testing.T) {
	snap := netwrk.UpdateSnapshot{
		P1X: 20, P1Y: 0, P2X: 770, P2Y: 520, BallX: 400, BallY: 300,
		Score1: 2, Score2: 7, WithP1: true, WithP2: true, WithBall: true,
	}
	frame := Frame(pong.DefaultGeometry, snap, netwrk.RolePlayer2, 80, 25)

	assert.Contains(t, frame, "P1 2 : 7 P2")
	assert.Contains(t, frame, "you: Player 2")
	assert.NotContains(t, frame, "waiting")
	// ball at (400,300) on an 80x24 field lands in column 40, row 1+12
	assert.Contains(t, frame, string(ansii.Screen.PlaceCursor(ansii.Offset{X: 40, Y: 13}))+ansii.Blocks.Block)
	// player 1 paddle starts at the top of the field
	assert.Contains(t, frame, string(ansii.Screen.PlaceCursor(ansii.Offset{X: 2, Y: 1})))
	assert.Contains(t, frame, string(ansii.Colors.Cyan), "own paddle highlighted")
}

func TestFrameHidesAbsentEntities(t *testing.T) {
	snap := netwrk.UpdateSnapshot{BallX: 400, BallY: 300, WithP1: true}
	frame := Frame(pong.DefaultGeometry, snap, netwrk.RoleObserver, 80, 25)

	assert.Contains(t, frame, "you: observer")
	assert.Contains(t, frame, "waiting for players")
	assert.NotContains(t, frame, string(ansii.Colors.Yellow))
	assert.NotContains(t, frame, string(ansii.Colors.Cyan))
	assert.Equal(t, 3, strings.Count(frame, ansii.Blocks.Block), "one paddle, 80px on a 24 row field")
}

func TestFrameTinyTerminal(t *testing.T) {
	frame := Frame(pong.DefaultGeometry, netwrk.UpdateSnapshot{WithBall: true}, 0, 0, 0)
	assert.Equal(t, string(ansii.Screen.ClearScreen+ansii.Screen.CursorHome), frame)
}

func TestRendererWritesFrames(t *testing.T) {
	var out bytes.Buffer
	r := New(&out, pong.DefaultGeometry, fixedSize(40, 12))

	require.NoError(t, r.SetRole(netwrk.RolePlayer1))
	assert.Contains(t, out.String(), "you: Player 1")

	out.Reset()
	require.NoError(t, r.Render(netwrk.UpdateSnapshot{Score1: 4, WithBall: true}))
	assert.Contains(t, out.String(), "P1 4 : 0 P2")
	assert.Contains(t, out.String(), "you: Player 1", "role survives redraws")

	failing := New(&out, pong.DefaultGeometry, func() (int, int, error) { return 0, 0, errors.New("no tty") })
	assert.Error(t, failing.Render(netwrk.UpdateSnapshot{}))
}

func TestProcessInput(t *testing.T) {
	assert.Equal(t, []UiAction{Up, Down, Quit}, ProcessInput([]byte("wSq")))
	assert.Equal(t, []UiAction{UpArrow, DownArrow}, ProcessInput([]byte("\x1b[A\x1b[B")))
	assert.Equal(t, []UiAction{Interrupt}, ProcessInput([]byte{3}))
	assert.Equal(t, []UiAction{Unknown, Unknown}, ProcessInput([]byte("x\x1b[C")))
	assert.Empty(t, ProcessInput(nil))
}
