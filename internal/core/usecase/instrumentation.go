package usecase

import (
	"log/slog"
	"time"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

// Instrumentation bundles the ambient collaborators of the use cases. Zero
// fields fall back to slog.Default, no-op metrics and time.Now.
type Instrumentation struct {
	Logger  *slog.Logger
	Metrics ports.IntakeMetrics
	Now     func() time.Time
}

func (i Instrumentation) normalize() Instrumentation {
	out := i
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if out.Metrics == nil {
		out.Metrics = noopMetrics{}
	}
	if out.Now == nil {
		out.Now = func() time.Time { return time.Now().UTC() }
	}
	return out
}

type noopMetrics struct{}

func (noopMetrics) ObserveBatch(domain.SlotName, string, int) {}

func (noopMetrics) ObserveSubmission(domain.SubmissionStatus, time.Duration) {}
