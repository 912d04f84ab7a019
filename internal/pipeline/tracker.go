package pipeline

import (
	"sync"

	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/domain"
)

// Tracker holds the current ProgressState and forwards accepted updates to
// an observer. Updates that would move backwards are dropped.
type Tracker struct {
	mu       sync.Mutex
	state    domain.ProgressState
	observer func(domain.ProgressState)
	logger   *zap.Logger
}

func NewTracker(observer func(domain.ProgressState), logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		state:    domain.ProgressState{Stage: domain.StageIdle},
		observer: observer,
		logger:   logger,
	}
}

// Update applies next if it does not regress, and reports whether it did.
// The observer runs under the tracker's lock so observers see updates in
// order.
func (t *Tracker) Update(next domain.ProgressState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.state
	nextOrder, curOrder := next.Stage.Order(), cur.Stage.Order()
	switch {
	case nextOrder < 0:
		t.logger.Warn("Dropped progress update with unknown stage", zap.String("stage", string(next.Stage)))
		return false
	case nextOrder < curOrder:
		t.logger.Warn("Dropped backward stage transition",
			zap.String("from", string(cur.Stage)),
			zap.String("to", string(next.Stage)),
		)
		return false
	case nextOrder == curOrder && next.CurrentStep < cur.CurrentStep:
		t.logger.Debug("Dropped stale progress step",
			zap.String("stage", string(next.Stage)),
			zap.Int("current", cur.CurrentStep),
			zap.Int("next", next.CurrentStep),
		)
		return false
	}

	t.state = next
	if t.observer != nil {
		t.observer(next)
	}
	return true
}

// Reset returns to IDLE unconditionally.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = domain.ProgressState{Stage: domain.StageIdle}
	if t.observer != nil {
		t.observer(t.state)
	}
}

func (t *Tracker) State() domain.ProgressState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
