package renderer

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"netpong/internal/ansii"
	"netpong/internal/netwrk"
	"netpong/internal/pong"
)

// SizeFunc reports the drawable terminal size in cells.
type SizeFunc func() (cols, rows int, err error)

// Renderer redraws the whole screen for every snapshot it is given.
type Renderer struct {
	mu   sync.Mutex
	out  io.Writer
	geo  pong.Geometry
	size SizeFunc
	role int
	last netwrk.UpdateSnapshot
}

func New(out io.Writer, geo pong.Geometry, size SizeFunc) *Renderer {
	if size == nil {
		size = ansii.GetTermSize
	}
	return &Renderer{out: out, geo: geo, size: size}
}

// SetRole redraws the last snapshot with the new role in the status line.
func (r *Renderer) SetRole(role int) error {
	r.mu.Lock()
	r.role = role
	r.mu.Unlock()
	return r.redraw()
}

func (r *Renderer) Render(snap netwrk.UpdateSnapshot) error {
	r.mu.Lock()
	r.last = snap
	r.mu.Unlock()
	return r.redraw()
}

func (r *Renderer) redraw() error {
	cols, rows, err := r.size()
	if err != nil {
		return fmt.Errorf("terminal size: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err = io.WriteString(r.out, Frame(r.geo, r.last, r.role, cols, rows))
	return err
}

// Frame draws snap on a cols x rows screen. Row 0 is the status line; the field
// is scaled into the rows below it.
func Frame(geo pong.Geometry, snap netwrk.UpdateSnapshot, role, cols, rows int) string {
	var b strings.Builder
	b.WriteString(string(ansii.Screen.ClearScreen + ansii.Screen.CursorHome))
	if cols < 1 || rows < 2 {
		return b.String()
	}

	status := fmt.Sprintf("P1 %d : %d P2   you: %s   w/s move, q quit", snap.Score1, snap.Score2, RoleName(role))
	if !snap.WithBall {
		status += "   waiting for players"
	}
	ansii.DrawText(&b, ansii.Offset{}, truncate(status, cols), ansii.Styles.Bold)

	field := fieldScale{geo: geo, cols: cols, rows: rows - 1}
	paddleH := max(1, field.h(geo.Paddle.H))
	if snap.WithP1 {
		ansii.DrawBox(&b, field.at(snap.P1X, snap.P1Y), paddleH, 1, paddleColor(role, netwrk.RolePlayer1))
	}
	if snap.WithP2 {
		ansii.DrawBox(&b, field.at(snap.P2X, snap.P2Y), paddleH, 1, paddleColor(role, netwrk.RolePlayer2))
	}
	if snap.WithBall {
		ansii.DrawPixelStyle(&b, field.at(snap.BallX, snap.BallY), ansii.Colors.Yellow)
	}
	return b.String()
}

func RoleName(role int) string {
	switch role {
	case netwrk.RolePlayer1:
		return "Player 1"
	case netwrk.RolePlayer2:
		return "Player 2"
	default:
		return "observer"
	}
}

func paddleColor(role, seat int) ansii.ANSI {
	if role == seat {
		return ansii.Colors.Cyan
	}
	return ansii.Colors.Purple
}

type fieldScale struct {
	geo  pong.Geometry
	cols int
	rows int
}

// at maps a field pixel to a cell below the status line.
func (f fieldScale) at(x, y int) ansii.Offset {
	cx := x * f.cols / f.geo.Field.W
	cy := y * f.rows / f.geo.Field.H
	return ansii.Offset{
		X: min(max(cx, 0), f.cols-1),
		Y: 1 + min(max(cy, 0), f.rows-1),
	}
}

func (f fieldScale) h(px int) int {
	return px * f.rows / f.geo.Field.H
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
