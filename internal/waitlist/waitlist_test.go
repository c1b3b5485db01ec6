package waitlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestCounterStartsAtConfiguredValue(t *testing.T) {
	c := NewCounter(DefaultStart, time.Hour)
	assert.Equal(t, int64(147), c.Value())
}

func TestCounterGrowsWithinBounds(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewCounter(100, 2*time.Millisecond)
	c.step = func() int64 { return 2 }
	c.Start()
	c.Start()
	require.Eventually(t, func() bool { return c.Value() >= 110 }, time.Second, time.Millisecond)
	c.Stop()
	c.Stop()

	frozen := c.Value()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, frozen, c.Value())
}

func TestDefaultStepRange(t *testing.T) {
	c := NewCounter(0, time.Hour)
	for range 200 {
		s := c.step()
		assert.GreaterOrEqual(t, s, int64(0))
		assert.LessOrEqual(t, s, int64(2))
	}
}
