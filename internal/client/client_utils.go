package client

import (
	"errors"
	"strings"
	"time"

	"netpong/internal/netwrk"
	"netpong/internal/renderer"
)

// HoldDecay is how long a key counts as held after its last repeat. Terminals
// only report presses, so holding a key is seen as a stream of repeats.
const HoldDecay = 150 * time.Millisecond

const maxNameLen = 24

var ErrBadName = errors.New("please pick a name of 1-24 characters with no spaces")

// ValidName trims name and rejects empty, spaced or overly long names.
func ValidName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLen || strings.ContainsAny(name, " \t:") {
		return "", ErrBadName
	}
	return name, nil
}

// HeldKeys turns key presses into a held up/down state.
type HeldKeys struct {
	up   time.Time
	down time.Time
}

// Press records a. Up and down are exclusive; pressing one releases the other.
func (h *HeldKeys) Press(a renderer.UiAction, now time.Time) {
	switch a {
	case renderer.Up, renderer.UpArrow:
		h.up, h.down = now.Add(HoldDecay), time.Time{}
	case renderer.Down, renderer.DownArrow:
		h.down, h.up = now.Add(HoldDecay), time.Time{}
	}
}

func (h *HeldKeys) State(now time.Time) netwrk.InputState {
	return netwrk.InputState{Up: now.Before(h.up), Down: now.Before(h.down)}
}
