package outreach

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_DelayWithinBounds(t *testing.T) {
	p := NewPacer(2*time.Second, 5*time.Second, 0)
	for range 200 {
		d := p.Delay()
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.LessOrEqual(t, d, 5*time.Second)
	}
}

func TestPacer_SwapsBounds(t *testing.T) {
	p := NewPacer(5*time.Second, 2*time.Second, 0)
	lo, hi := p.Bounds()
	assert.Equal(t, 2*time.Second, lo)
	assert.Equal(t, 5*time.Second, hi)

	p.SetBounds(time.Second, 1500*time.Millisecond)
	for range 50 {
		d := p.Delay()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
}

func TestPacer_FixedDelay(t *testing.T) {
	p := NewPacer(time.Second, time.Second, 0)
	assert.Equal(t, time.Second, p.Delay())
}

func TestPacer_PauseHonorsContext(t *testing.T) {
	p := NewPacer(time.Hour, time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := p.Pause(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	assert.NoError(t, NewPacer(0, 0, 0).Pause(context.Background()))
}

func TestPacer_HourlyCeiling(t *testing.T) {
	assert.NoError(t, NewPacer(0, 0, 0).Allow(context.Background()), "no ceiling")

	p := NewPacer(0, 0, 60)
	require.NoError(t, p.Allow(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, p.Allow(ctx), "second send within a minute must wait")
}
