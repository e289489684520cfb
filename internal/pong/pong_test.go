package pong

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playingGame(t *testing.T) *Game {
	t.Helper()
	g := NewGame(Geometry{})
	require.Equal(t, Playing, g.Seat(true, true))
	return g
}

func TestNewGameRestsInLobby(t *testing.T) {
	g := NewGame(Geometry{})
	snap := g.Snapshot()

	assert.Equal(t, Lobby, snap.Phase)
	assert.Equal(t, Vector{X: 395, Y: 295}, snap.Ball)
	assert.Equal(t, Vector{X: 20, Y: 260}, snap.P1)
	assert.Equal(t, Vector{X: 770, Y: 260}, snap.P2)
	assert.False(t, snap.WithBall)
	assert.Equal(t, Vector{}, g.vel)
	assert.False(t, g.Advance(Input{Up: true}, Input{}))
	assert.Equal(t, snap, g.Snapshot())
}

func TestPaddlesClampToField(t *testing.T) {
	g := playingGame(t)
	for i := 0; i < 200; i++ {
		g.Advance(Input{Up: true}, Input{Down: true})
		snap := g.Snapshot()
		require.GreaterOrEqual(t, snap.P1.Y, 0)
		require.LessOrEqual(t, snap.P2.Y, 520)
	}
	snap := g.Snapshot()
	assert.Equal(t, 0, snap.P1.Y)
	assert.Equal(t, 520, snap.P2.Y)

	g.Advance(Input{Up: true, Down: true}, Input{})
	assert.Equal(t, 0, g.Snapshot().P1.Y, "up and down cancel")
}

func TestBallStaysInsideVertically(t *testing.T) {
	g := playingGame(t)
	assert.Equal(t, Vector{X: 4, Y: 3}, g.vel)

	for i := 0; i < 50; i++ {
		require.True(t, g.Advance(Input{}, Input{}))
		y := g.Snapshot().Ball.Y
		require.GreaterOrEqual(t, y, 0)
		require.LessOrEqual(t, y, 590)
	}
	assert.Equal(t, Vector{X: 595, Y: 445}, g.Snapshot().Ball)

	for i := 0; i < 2000; i++ {
		g.Advance(Input{}, Input{})
		y := g.Snapshot().Ball.Y
		require.GreaterOrEqual(t, y, 0)
		require.LessOrEqual(t, y, 590)
	}
}

func TestWallsFlipVerticalVelocity(t *testing.T) {
	g := playingGame(t)

	g.ball, g.vel = Vector{X: 400, Y: 2}, Vector{X: 4, Y: -3}
	g.Advance(Input{}, Input{})
	assert.Equal(t, 0, g.ball.Y)
	assert.Equal(t, 3, g.vel.Y)

	g.ball, g.vel = Vector{X: 400, Y: 588}, Vector{X: 4, Y: 3}
	g.Advance(Input{}, Input{})
	assert.Equal(t, 590, g.ball.Y)
	assert.Equal(t, -3, g.vel.Y)
}

func TestPaddlesReflectBall(t *testing.T) {
	g := playingGame(t)

	g.ball, g.vel = Vector{X: 32, Y: 280}, Vector{X: -4, Y: 0}
	g.Advance(Input{}, Input{})
	assert.Equal(t, 4, g.vel.X, "player 1 sends it right")

	g.ball, g.vel = Vector{X: 758, Y: 280}, Vector{X: 4, Y: 0}
	g.Advance(Input{}, Input{})
	assert.Equal(t, -4, g.vel.X, "player 2 sends it left")

	g.ball, g.vel = Vector{X: 32, Y: 100}, Vector{X: -4, Y: 0}
	g.Advance(Input{}, Input{})
	assert.Equal(t, -4, g.vel.X, "paddle edges do not reach y=100")
}

func TestDoubleOverlapGoesLeft(t *testing.T) {
	geo := DefaultGeometry
	geo.Field.W = 60
	g := NewGame(geo)
	g.Seat(true, true)

	// p1 spans x 20..30, p2 spans 30..40; a ball at 25 touches both.
	g.ball, g.vel = Vector{X: 21, Y: 280}, Vector{X: 4, Y: 0}
	g.Advance(Input{}, Input{})
	assert.Equal(t, -4, g.vel.X)
}

func TestScoringReservesFromCenter(t *testing.T) {
	g := playingGame(t)

	g.ball, g.vel = Vector{X: -5, Y: 295}, Vector{X: -6, Y: 0}
	g.Advance(Input{}, Input{})
	snap := g.Snapshot()
	assert.Equal(t, 0, snap.Score1)
	assert.Equal(t, 1, snap.Score2)
	assert.Equal(t, Vector{X: 395, Y: 295}, snap.Ball)
	assert.Equal(t, Vector{X: 4, Y: 3}, g.vel)

	g.ball, g.vel = Vector{X: 795, Y: 295}, Vector{X: 6, Y: 0}
	g.Advance(Input{}, Input{})
	snap = g.Snapshot()
	assert.Equal(t, 1, snap.Score1)
	assert.Equal(t, 1, snap.Score2)
	assert.Equal(t, Vector{X: 395, Y: 295}, snap.Ball)
	assert.Equal(t, Vector{X: -4, Y: 3}, g.vel)
}

func TestPhaseTransitions(t *testing.T) {
	g := NewGame(Geometry{})

	assert.Equal(t, Paused, g.Seat(true, false))
	snap := g.Snapshot()
	assert.True(t, snap.WithP1)
	assert.False(t, snap.WithP2)
	assert.False(t, snap.WithBall)

	assert.Equal(t, Playing, g.Seat(true, true))
	assert.False(t, g.StartGame(), "already playing")
	assert.True(t, g.Snapshot().WithBall)

	g.ball, g.vel = Vector{X: -5, Y: 295}, Vector{X: -6, Y: 0}
	g.Advance(Input{}, Input{})
	require.Equal(t, 1, g.Snapshot().Score2)

	assert.Equal(t, Paused, g.Seat(false, true))
	snap = g.Snapshot()
	assert.Equal(t, Vector{X: 395, Y: 295}, snap.Ball)
	assert.Equal(t, 1, snap.Score2, "pausing keeps scores")
	assert.False(t, snap.WithBall)
	assert.False(t, g.Advance(Input{}, Input{}))

	assert.True(t, g.StartGame())
	assert.Equal(t, Vector{X: 4, Y: 3}, g.vel, "resumes with a fresh serve")

	g.StopToLobby()
	snap = g.Snapshot()
	assert.Equal(t, Lobby, snap.Phase)
	assert.Zero(t, snap.Score1)
	assert.Zero(t, snap.Score2)

	assert.True(t, g.PauseGame())
	assert.False(t, g.PauseGame())
	assert.Equal(t, Paused, g.Phase())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "lobby", Lobby.String())
	assert.Equal(t, "playing", Playing.String())
	assert.Equal(t, "paused", Paused.String())
	assert.Equal(t, "unknown", Phase(9).String())
}
