package simulated

import (
	"context"
	"time"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/infrastructure/resilience"
)

const DefaultDelay = 1500 * time.Millisecond

// Backend stands in for the document intake system: it waits for Delay and
// accepts the submission. Cancellation ends the wait with the context error.
type Backend struct {
	delay    time.Duration
	executor *resilience.Executor
}

func New(delay time.Duration, executor *resilience.Executor) *Backend {
	if delay < 0 {
		delay = DefaultDelay
	}
	return &Backend{delay: delay, executor: executor}
}

func (b *Backend) Transfer(ctx context.Context, formID string, data domain.FormData) error {
	call := func(ctx context.Context) error {
		return b.wait(ctx)
	}
	if b.executor == nil {
		return call(ctx)
	}
	return b.executor.Execute(ctx, "transfer.submit", call, resilience.ContextClassifier)
}

func (b *Backend) wait(ctx context.Context) error {
	if b.delay == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(b.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
