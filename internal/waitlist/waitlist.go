// Package waitlist drives the cosmetic queue counter on the waitlist screen.
package waitlist

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

// Defaults of the queue display.
const (
	DefaultStart    = 147
	DefaultInterval = 5 * time.Second
	maxStep         = 2
)

// Counter grows by a random 0..2 every interval.
type Counter struct {
	value    atomic.Int64
	interval time.Duration
	step     func() int64

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// NewCounter starts from start and ticks every interval once started.
func NewCounter(start int64, interval time.Duration) *Counter {
	c := &Counter{
		interval: interval,
		step:     func() int64 { return rand.Int64N(maxStep + 1) },
	}
	c.value.Store(start)
	return c
}

// Value is the current queue position shown to visitors.
func (c *Counter) Value() int64 { return c.value.Load() }

// Start launches the ticker. Calling it twice is a no-op.
func (c *Counter) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	c.stopped = make(chan struct{})
	go c.run(c.stop, c.stopped)
}

// Stop halts the ticker and waits for it to exit.
func (c *Counter) Stop() {
	c.mu.Lock()
	stop, stopped := c.stop, c.stopped
	c.stop, c.stopped = nil, nil
	c.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-stopped
}

func (c *Counter) run(stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.value.Add(c.step())
		case <-stop:
			return
		}
	}
}
