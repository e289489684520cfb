package pong

// Phase is the match state machine: Lobby -> Playing <-> Paused.
type Phase int

const (
	Lobby Phase = iota
	Playing
	Paused
)

func (p Phase) String() string {
	switch p {
	case Lobby:
		return "lobby"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

type Vector struct {
	X int
	Y int
}

type Size struct {
	W int
	H int
}

type Input struct {
	Up   bool
	Down bool
}

// Geometry fixes the field and everything that moves on it, in pixels per tick.
type Geometry struct {
	Field       Size
	Paddle      Size
	Ball        Size
	PaddleInset int
	PaddleStep  int
	BaseSpeed   Vector
}

// DefaultGeometry is an 800x600 field with 10x80 paddles 20px from each edge.
var DefaultGeometry = Geometry{
	Field:       Size{W: 800, H: 600},
	Paddle:      Size{W: 10, H: 80},
	Ball:        Size{W: 10, H: 10},
	PaddleInset: 20,
	PaddleStep:  6,
	BaseSpeed:   Vector{X: 4, Y: 3},
}

// Snapshot is an immutable copy of everything a client draws.
type Snapshot struct {
	Phase    Phase
	P1       Vector
	P2       Vector
	Ball     Vector
	Score1   int
	Score2   int
	WithP1   bool
	WithP2   bool
	WithBall bool
}

type rect struct {
	x, y, w, h int
}

func (r rect) overlaps(o rect) bool {
	return r.x < o.x+o.w && o.x < r.x+r.w && r.y < o.y+o.h && o.y < r.y+r.h
}
