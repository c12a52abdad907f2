package combat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

func TestPacer_ZeroDelayReturnsImmediately(t *testing.T) {
	p := combat.NewPacer(0)
	assert.NoError(t, p.Pause(context.Background()))
	assert.NoError(t, p.Beat(context.Background()))
}

func TestPacer_CanceledContext(t *testing.T) {
	p := combat.NewPacer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Pause(ctx), context.Canceled)
	assert.ErrorIs(t, p.Beat(ctx), context.Canceled)
}

func TestPacer_Waits(t *testing.T) {
	p := combat.NewPacer(20 * time.Millisecond)
	start := time.Now()
	assert.NoError(t, p.Pause(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestNewPacer_PanicsOnNegativeDelay(t *testing.T) {
	assert.Panics(t, func() { combat.NewPacer(-time.Second) })
}
