package combat

import (
	"context"
	"time"
)

// Pacer inserts the observability delays between AI sub-steps.
// A zero delay never blocks, which makes the engine synchronous.
type Pacer struct {
	delay time.Duration
}

// NewPacer creates a Pacer with the given base delay.
//
// Precondition: delay >= 0.
func NewPacer(delay time.Duration) *Pacer {
	if delay < 0 {
		panic("combat: negative pacing delay")
	}
	return &Pacer{delay: delay}
}

// Pause waits for the full delay.
func (p *Pacer) Pause(ctx context.Context) error { return p.wait(ctx, p.delay) }

// Beat waits for half the delay.
func (p *Pacer) Beat(ctx context.Context) error { return p.wait(ctx, p.delay/2) }

// wait blocks for d or until ctx is done.
//
// Postcondition: returns ctx.Err() when ctx ended first, nil otherwise.
func (p *Pacer) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
