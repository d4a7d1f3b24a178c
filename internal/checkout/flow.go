package checkout

import (
	"context"
	"errors"
	"sync"
)

// ErrAbandoned is returned to an attempt whose result arrived after the buyer
// left checkout or started a newer attempt.
var ErrAbandoned = errors.New("checkout attempt abandoned")

// Runner is the part of Service a Flow drives.
type Runner interface {
	Checkout(ctx context.Context, in Input) (*Outcome, error)
}

// Flow tracks the single live checkout attempt of one buyer session. Starting
// a new attempt or calling Abandon cancels the previous one and discards its
// result.
type Flow struct {
	runner Runner

	mu      sync.Mutex
	attempt uint64
	cancel  context.CancelFunc
}

func NewFlow(runner Runner) *Flow {
	return &Flow{runner: runner}
}

// Submit runs a checkout attempt. It returns ErrAbandoned if the attempt was
// superseded while in flight.
func (f *Flow) Submit(ctx context.Context, in Input) (*Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.attempt++
	mine := f.attempt
	f.cancel = cancel
	f.mu.Unlock()

	out, err := f.runner.Checkout(ctx, in)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attempt != mine {
		return nil, ErrAbandoned
	}
	f.cancel = nil
	return out, err
}

// Abandon discards the in-flight attempt, if any.
func (f *Flow) Abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempt++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}
