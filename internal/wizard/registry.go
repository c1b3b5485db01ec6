package wizard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Factory builds the machine for a session that has none in memory. restored
// reports whether it was resumed from stored progress.
type Factory func(ctx context.Context) (m *Machine, restored bool, err error)

type liveMachine struct {
	machine  *Machine
	lastSeen time.Time
}

// Registry keeps one live machine per visitor session.
type Registry struct {
	mu       sync.Mutex
	machines map[string]*liveMachine
	logger   *zap.Logger
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		machines: make(map[string]*liveMachine),
		logger:   logger,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Acquire returns the session's machine, building one with create when none is
// live or the live one was already submitted. started is true when the visitor
// begins a fresh questionnaire. create runs without the registry lock held, so
// a slow store only delays its own session.
func (r *Registry) Acquire(ctx context.Context, key string, create Factory) (m *Machine, started bool, err error) {
	r.mu.Lock()
	lm, ok := r.machines[key]
	r.mu.Unlock()

	if ok {
		if _, done := lm.machine.Completed(); !done {
			r.touch(key, lm)
			return lm.machine, false, nil
		}
		r.mu.Lock()
		if r.machines[key] == lm {
			delete(r.machines, key)
		}
		r.mu.Unlock()
		lm.machine.Close()
	}

	m, restored, err := create(ctx)
	if err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	if cur, ok := r.machines[key]; ok {
		// Another request for the same session won the race.
		cur.lastSeen = r.now()
		r.mu.Unlock()
		m.Close()
		return cur.machine, false, nil
	}
	r.machines[key] = &liveMachine{machine: m, lastSeen: r.now()}
	r.mu.Unlock()
	return m, !restored, nil
}

func (r *Registry) touch(key string, lm *liveMachine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.machines[key] == lm {
		lm.lastSeen = r.now()
	}
}

// Lookup returns the live machine for key without creating one.
func (r *Registry) Lookup(key string) (*Machine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lm, ok := r.machines[key]
	if !ok {
		return nil, false
	}
	lm.lastSeen = r.now()
	return lm.machine, true
}

// Forget closes and drops the session's machine.
func (r *Registry) Forget(key string) {
	r.mu.Lock()
	lm, ok := r.machines[key]
	delete(r.machines, key)
	r.mu.Unlock()
	if ok {
		lm.machine.Close()
	}
}

// Len is the number of live machines.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.machines)
}

// Sweep closes machines idle for longer than maxIdle and returns how many were
// dropped. Their progress stays in the persister.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	cutoff := r.now().Add(-maxIdle)
	var idle []*Machine
	for key, lm := range r.machines {
		if lm.lastSeen.Before(cutoff) {
			idle = append(idle, lm.machine)
			delete(r.machines, key)
		}
	}
	r.mu.Unlock()
	closeAll(idle)
	return len(idle)
}

func closeAll(machines []*Machine) {
	for _, m := range machines {
		m.Close()
	}
}

// StartSweeper runs Sweep every interval until ctx is done or Close is called.
func (r *Registry) StartSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := r.Sweep(maxIdle); n > 0 {
					r.logger.Debug("swept idle wizard sessions", zap.Int("count", n))
				}
			case <-ctx.Done():
				return
			case <-r.stopChan:
				return
			}
		}
	}()
}

// Close stops the sweeper and every live machine.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stopChan) })
	r.mu.Lock()
	live := make([]*Machine, 0, len(r.machines))
	for key, lm := range r.machines {
		live = append(live, lm.machine)
		delete(r.machines, key)
	}
	r.mu.Unlock()
	closeAll(live)
}
