package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/kapu/reader-sim-go/pkg/errors"
)

type failureWatchKey struct{}

// FailureWatch latches the first credential rejection seen by any completion
// made under its context and cancels that context.
type FailureWatch struct {
	mu     sync.Mutex
	err    error
	cancel context.CancelCauseFunc
}

// WithFailureWatch derives a context whose completions report auth failures
// to the returned watch. Call Stop when the run is over.
func WithFailureWatch(parent context.Context) (context.Context, *FailureWatch) {
	ctx, cancel := context.WithCancelCause(parent)
	w := &FailureWatch{cancel: cancel}
	return context.WithValue(ctx, failureWatchKey{}, w), w
}

// Err returns ErrMisconfigured wrapped with the first auth failure, or nil.
func (w *FailureWatch) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", errors.ErrMisconfigured, w.err)
}

func (w *FailureWatch) Stop() {
	w.cancel(nil)
}

func (w *FailureWatch) record(err error) {
	if !errors.IsAuthFailure(err) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	w.err = err
	w.cancel(errors.ErrMisconfigured)
}

func recordFailure(ctx context.Context, err error) {
	if w, ok := ctx.Value(failureWatchKey{}).(*FailureWatch); ok {
		w.record(err)
	}
}
