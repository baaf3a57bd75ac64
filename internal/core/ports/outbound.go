package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

// ObjectStorage stages the bytes of accepted files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// DocumentTransfer is the opaque backend that receives a complete submission.
type DocumentTransfer interface {
	Transfer(ctx context.Context, formID string, data domain.FormData) error
}

// Notifier delivers toast notices.
type Notifier interface {
	Notify(ctx context.Context, notice domain.Notice) error
}

// SubmissionLog persists submission attempt outcomes.
type SubmissionLog interface {
	Record(ctx context.Context, record domain.SubmissionRecord) error
	ListByForm(ctx context.Context, formID string) ([]domain.SubmissionRecord, error)
}

// IntakeMetrics observes intake and submission outcomes.
type IntakeMetrics interface {
	ObserveBatch(slot domain.SlotName, outcome string, files int)
	ObserveSubmission(status domain.SubmissionStatus, duration time.Duration)
}
