package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewFixed_NonPositiveIsNone(t *testing.T) {
	assert.IsType(t, None{}, NewFixed(0))
	assert.IsType(t, None{}, NewFixed(-time.Second))
	assert.IsType(t, Fixed{}, NewFixed(time.Millisecond))
}

func TestFixed_WaitsInterval(t *testing.T) {
	f := Fixed{Interval: 20 * time.Millisecond}

	start := time.Now()
	assert.NoError(t, f.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestFixed_StopsOnCancel(t *testing.T) {
	f := Fixed{Interval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, f.Wait(ctx), context.Canceled)
}

func TestNone_ReturnsContextError(t *testing.T) {
	assert.NoError(t, None{}.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, None{}.Wait(ctx), context.Canceled)
}

func TestCounting(t *testing.T) {
	c := &Counting{}
	for i := 0; i < 3; i++ {
		assert.NoError(t, c.Wait(context.Background()))
	}
	assert.Equal(t, 3, c.Calls())
}
