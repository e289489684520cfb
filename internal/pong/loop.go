package pong

import (
	"context"
	"time"
)

const DefaultTickRate = 60

// StepFunc runs one fixed simulation step.
type StepFunc func(step time.Duration)

// Loop calls its step function at a fixed simulated rate. Wall clock time is
// accumulated between wakes and spent in whole steps, so late wakes catch up
// instead of slowing the match down.
type Loop struct {
	step     time.Duration
	wake     time.Duration
	stepFunc StepFunc
	now      func() time.Time
}

// NewLoop targets hz steps per second, falling back to 60.
func NewLoop(hz float64, step StepFunc) *Loop {
	if hz <= 0 {
		hz = DefaultTickRate
	}
	if step == nil {
		step = func(time.Duration) {}
	}
	interval := time.Duration(float64(time.Second) / hz)
	if interval <= 0 {
		interval = time.Second / DefaultTickRate
	}
	return &Loop{
		step:     interval,
		wake:     time.Millisecond,
		stepFunc: step,
		now:      time.Now,
	}
}

func (l *Loop) StepDuration() time.Duration { return l.step }

// Run blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.wake)
	defer ticker.Stop()

	last := l.now()
	var acc time.Duration
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := l.now()
			acc += now.Sub(last)
			last = now
			acc = l.drain(ctx, acc)
		}
	}
}

// drain runs as many whole steps as acc covers and returns the remainder.
func (l *Loop) drain(ctx context.Context, acc time.Duration) time.Duration {
	for acc >= l.step {
		if ctx.Err() != nil {
			return acc
		}
		l.stepFunc(l.step)
		acc -= l.step
	}
	return acc
}
