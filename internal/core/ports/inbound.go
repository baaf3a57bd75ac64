package ports

import (
	"context"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

// FormIntake is the inbound contract for per-slot file intake.
type FormIntake interface {
	CreateForm(ctx context.Context) (*domain.FormSnapshot, error)
	GetForm(ctx context.Context, formID string) (*domain.FormSnapshot, error)
	DeleteForm(ctx context.Context, formID string) error
	AddFiles(ctx context.Context, formID string, slot domain.SlotName, candidates []domain.FileCandidate) (*domain.BatchResult, error)
	RemoveFile(ctx context.Context, formID string, slot domain.SlotName, fileID string) (*domain.FormSnapshot, error)
	// RejectUpload reports a batch the transport refused before it was parsed.
	RejectUpload(ctx context.Context, formID string, slot domain.SlotName, cause error) error
}

// FormSubmitter is the inbound contract for the submission action.
type FormSubmitter interface {
	Submit(ctx context.Context, formID string) (*domain.SubmissionResult, error)
}

// SubmissionHistory is the inbound read model for past submission attempts.
type SubmissionHistory interface {
	ListByForm(ctx context.Context, formID string) ([]domain.SubmissionRecord, error)
}
