package lobby

import (
	"cmp"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"netpong/internal/netwrk"
	"netpong/internal/pong"
)

// Member is a connected session as the lobby sees it. *netwrk.Session satisfies it.
type Member interface {
	ID() uuid.UUID
	Joined() (time.Time, uint64)
	Role() int
	SetRole(role int)
	LatestInput() netwrk.InputState
	Send(msg netwrk.Message) error
	SendPayload(kind netwrk.Kind, payload []byte) error
	Close()
}

// Seater receives the outcome of every reassignment pass. *pong.Game satisfies it.
type Seater interface {
	Seat(hasP1, hasP2 bool) pong.Phase
}

// Seat is one row of a reassignment result.
type Seat struct {
	ID   uuid.UUID
	Role int
}

// SeatObserver is told about every completed pass while the lobby lock is held.
type SeatObserver func(seats []Seat, phase pong.Phase)

// Lobby is the authoritative set of connected members. Seats go to the two
// earliest members; every membership change reassigns all of them.
type Lobby struct {
	mu      sync.Mutex
	members map[uuid.UUID]Member
	game    Seater
	observe SeatObserver
}

func CreateLobby(game Seater) *Lobby {
	return &Lobby{
		members: make(map[uuid.UUID]Member),
		game:    game,
	}
}

// OnSeats installs an observer. It must not call back into the lobby.
func (l *Lobby) OnSeats(fn SeatObserver) {
	l.mu.Lock()
	l.observe = fn
	l.mu.Unlock()
}

// Add registers m and runs a reassignment pass.
func (l *Lobby) Add(m Member) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.members[m.ID()] = m
	l.reassignLocked()
}

// Remove drops m and runs a reassignment pass. Removing an unknown member is a no-op
// and reports false.
func (l *Lobby) Remove(m Member) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.members[m.ID()]; !ok {
		return false
	}
	delete(l.members, m.ID())
	m.SetRole(netwrk.RoleObserver)
	l.reassignLocked()
	return true
}

// reassignLocked resets every role, seats the two earliest members, tells every
// member its role, then lets the game decide whether to play or pause.
func (l *Lobby) reassignLocked() {
	ordered := l.orderedLocked()
	for _, m := range ordered {
		m.SetRole(netwrk.RoleObserver)
	}

	seats := make([]Seat, 0, len(ordered))
	hasP1, hasP2 := false, false
	for i, m := range ordered {
		role := netwrk.RoleObserver
		switch i {
		case 0:
			role, hasP1 = netwrk.RolePlayer1, true
		case 1:
			role, hasP2 = netwrk.RolePlayer2, true
		}
		m.SetRole(role)
		seats = append(seats, Seat{ID: m.ID(), Role: role})
	}

	for _, m := range ordered {
		if err := m.Send(netwrk.EnterResponse{PlayerNumber: m.Role()}); err != nil {
			slog.Debug("could not notify role", slog.String("session", m.ID().String()), slog.Any("error", err))
		}
	}
	slog.Info("[SEAT] " + describe(seats))

	phase := pong.Lobby
	if l.game != nil {
		phase = l.game.Seat(hasP1, hasP2)
	}
	if l.observe != nil {
		l.observe(seats, phase)
	}
}

// orderedLocked sorts by creation time, then accept sequence.
func (l *Lobby) orderedLocked() []Member {
	out := make([]Member, 0, len(l.members))
	for _, m := range l.members {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b Member) int {
		at, aseq := a.Joined()
		bt, bseq := b.Joined()
		if c := at.Compare(bt); c != 0 {
			return c
		}
		return cmp.Compare(aseq, bseq)
	})
	return out
}

// Inputs copies the latest input of both seats. Empty seats read as no input.
func (l *Lobby) Inputs() (p1, p2 netwrk.InputState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.members {
		switch m.Role() {
		case netwrk.RolePlayer1:
			p1 = m.LatestInput()
		case netwrk.RolePlayer2:
			p2 = m.LatestInput()
		}
	}
	return p1, p2
}

// Broadcast queues one encoded payload on every member. A member that cannot
// take it never affects the others.
func (l *Lobby) Broadcast(kind netwrk.Kind, payload []byte) {
	for _, m := range l.unordered() {
		if err := m.SendPayload(kind, payload); err != nil {
			slog.Debug("broadcast skipped session", slog.String("session", m.ID().String()), slog.Any("error", err))
		}
	}
}

// Members returns a copy in seating order.
func (l *Lobby) Members() []Member {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.orderedLocked()
}

// unordered returns a copy of the members in map order.
func (l *Lobby) unordered() []Member {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Member, 0, len(l.members))
	for _, m := range l.members {
		out = append(out, m)
	}
	return out
}

func (l *Lobby) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.members)
}

// CloseAll closes every member. Their readers remove them as they exit.
func (l *Lobby) CloseAll() {
	for _, m := range l.unordered() {
		m.Close()
	}
}

func describe(seats []Seat) string {
	if len(seats) == 0 {
		return "(empty)"
	}
	parts := make([]string, 0, len(seats))
	for _, s := range seats {
		parts = append(parts, fmt.Sprintf("%s=P%d", s.ID.String()[:8], s.Role))
	}
	return strings.Join(parts, ", ")
}
