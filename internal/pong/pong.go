package pong

import (
	"log/slog"
	"sync"
)

// Game is the authoritative match state. Every read and write goes through mu, so a
// Snapshot never mixes fields from two different ticks.
type Game struct {
	mu  sync.Mutex
	geo Geometry

	phase  Phase
	p1Y    int
	p2Y    int
	ball   Vector
	vel    Vector
	score1 int
	score2 int

	withP1 bool
	withP2 bool
}

// NewGame starts in Lobby with centered paddles and a resting ball. A zero
// Geometry selects DefaultGeometry.
func NewGame(geo Geometry) *Game {
	if geo.Field.W <= 0 || geo.Field.H <= 0 {
		geo = DefaultGeometry
	}
	g := &Game{geo: geo, phase: Lobby}
	g.p1Y = geo.Field.H/2 - geo.Paddle.H/2
	g.p2Y = g.p1Y
	g.centerBall()
	return g
}

func (g *Game) Geometry() Geometry { return g.geo }

func (g *Game) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// StartGame moves Lobby or Paused to Playing and reports whether the phase changed.
func (g *Game) StartGame() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.startLocked()
}

// PauseGame freezes the ball at center. Scores are kept.
func (g *Game) PauseGame() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pauseLocked()
}

// StopToLobby resets scores and the ball.
func (g *Game) StopToLobby() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.phase = Lobby
	g.score1, g.score2 = 0, 0
	g.centerBall()
}

// Seat applies the outcome of a reassignment pass: both seats filled plays,
// anything less pauses. It returns the resulting phase.
func (g *Game) Seat(hasP1, hasP2 bool) Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.withP1, g.withP2 = hasP1, hasP2
	if hasP1 && hasP2 {
		g.startLocked()
	} else {
		g.pauseLocked()
	}
	return g.phase
}

func (g *Game) startLocked() bool {
	if g.phase == Playing {
		return false
	}
	prev := g.phase
	g.phase = Playing
	if (g.vel.X == 0 && g.vel.Y == 0) || (g.ball.X == 0 && g.ball.Y == 0) {
		g.serve(true)
	}
	slog.Info("match phase changed", slog.String("from", prev.String()), slog.String("to", g.phase.String()))
	return true
}

func (g *Game) pauseLocked() bool {
	if g.phase == Paused {
		return false
	}
	prev := g.phase
	g.phase = Paused
	g.centerBall()
	slog.Info("match phase changed", slog.String("from", prev.String()), slog.String("to", g.phase.String()))
	return true
}

// Advance runs one tick and reports whether anything moved. It is a no-op
// outside Playing.
func (g *Game) Advance(in1, in2 Input) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != Playing {
		return false
	}
	geo := g.geo

	g.p1Y = g.movePaddle(g.p1Y, in1)
	g.p2Y = g.movePaddle(g.p2Y, in2)

	g.ball.X += g.vel.X
	g.ball.Y += g.vel.Y

	// Clamped to the wall so snapshots never report a ball outside the field.
	if g.ball.Y <= 0 {
		g.ball.Y = 0
		g.vel.Y = abs(g.vel.Y)
	} else if g.ball.Y+geo.Ball.H >= geo.Field.H {
		g.ball.Y = geo.Field.H - geo.Ball.H
		g.vel.Y = -abs(g.vel.Y)
	}

	// A ball touching both paddles ends up moving left: the second check wins.
	ball := rect{g.ball.X, g.ball.Y, geo.Ball.W, geo.Ball.H}
	if ball.overlaps(rect{g.p1X(), g.p1Y, geo.Paddle.W, geo.Paddle.H}) {
		g.vel.X = abs(g.vel.X)
	}
	if ball.overlaps(rect{g.p2X(), g.p2Y, geo.Paddle.W, geo.Paddle.H}) {
		g.vel.X = -abs(g.vel.X)
	}

	if g.ball.X < -geo.Ball.W {
		g.score2++
		g.serve(true)
	} else if g.ball.X > geo.Field.W {
		g.score1++
		g.serve(false)
	}
	return true
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Snapshot{
		Phase:    g.phase,
		P1:       Vector{X: g.p1X(), Y: g.p1Y},
		P2:       Vector{X: g.p2X(), Y: g.p2Y},
		Ball:     g.ball,
		Score1:   g.score1,
		Score2:   g.score2,
		WithP1:   g.withP1,
		WithP2:   g.withP2,
		WithBall: g.phase == Playing,
	}
}

func (g *Game) movePaddle(y int, in Input) int {
	if in.Up {
		y -= g.geo.PaddleStep
	}
	if in.Down {
		y += g.geo.PaddleStep
	}
	return clamp(y, 0, g.geo.Field.H-g.geo.Paddle.H)
}

func (g *Game) p1X() int { return g.geo.PaddleInset }

func (g *Game) p2X() int { return g.geo.Field.W - g.geo.PaddleInset - g.geo.Paddle.W }

func (g *Game) centerBall() {
	g.ball = Vector{
		X: g.geo.Field.W/2 - g.geo.Ball.W/2,
		Y: g.geo.Field.H/2 - g.geo.Ball.H/2,
	}
	g.vel = Vector{}
}

func (g *Game) serve(right bool) {
	g.centerBall()
	g.vel = Vector{X: -g.geo.BaseSpeed.X, Y: g.geo.BaseSpeed.Y}
	if right {
		g.vel.X = g.geo.BaseSpeed.X
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
