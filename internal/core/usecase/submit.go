package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

type SubmitUseCase struct {
	registry *FormRegistry
	transfer ports.DocumentTransfer
	storage  ports.ObjectStorage
	notifier ports.Notifier
	log      ports.SubmissionLog
	timeout  time.Duration
	inst     Instrumentation
}

func NewSubmitUseCase(
	registry *FormRegistry,
	transfer ports.DocumentTransfer,
	storage ports.ObjectStorage,
	notifier ports.Notifier,
	log ports.SubmissionLog,
	timeout time.Duration,
	inst Instrumentation,
) *SubmitUseCase {
	return &SubmitUseCase{
		registry: registry,
		transfer: transfer,
		storage:  storage,
		notifier: notifier,
		log:      log,
		timeout:  timeout,
		inst:     inst.normalize(),
	}
}

// Submit runs Idle -> Submitting -> Idle. An invalid form never reaches the
// transfer backend. Success clears every slot; failure leaves the form as it
// was. There is no automatic retry.
func (uc *SubmitUseCase) Submit(ctx context.Context, formID string) (*domain.SubmissionResult, error) {
	form, err := uc.registry.Get(formID)
	if err != nil {
		return nil, err
	}
	start := uc.inst.Now()

	missing := form.MissingSlots()
	data, err := form.BeginSubmit()
	if err != nil {
		notice := rejectionNotice(formID, nil, err, uc.inst.Now())
		if domain.IsKind(err, domain.ErrValidationIncomplete) {
			if len(missing) > 0 {
				notice = missingDocumentsNotice(formID, missing, uc.inst.Now())
			}
			uc.record(ctx, formID, domain.SubmissionRejected, form.Data(), err)
			uc.inst.Metrics.ObserveSubmission(domain.SubmissionRejected, 0)
		}
		uc.notify(ctx, notice)
		uc.inst.Logger.WarnContext(ctx, "submission_rejected", "form_id", formID, "kind", domain.KindCode(err), "error", err)
		return nil, &domain.Rejection{Notice: notice, Err: err}
	}

	uc.inst.Logger.InfoContext(ctx, "submission_started", "form_id", formID, "files", data.FileCount())
	if transferErr := uc.runTransfer(ctx, formID, data); transferErr != nil {
		// Non-empty only when the form was deleted or evicted mid-transfer.
		leftover := form.FinishSubmit(false, uc.inst.Now())
		releaseFiles(context.WithoutCancel(ctx), uc.storage, uc.inst.Logger, leftover)
		err := domain.WrapError(domain.ErrTransferFailed, "submit form", transferErr)
		notice := rejectionNotice(formID, nil, err, uc.inst.Now())

		uc.record(ctx, formID, domain.SubmissionFailed, data, err)
		uc.notify(ctx, notice)
		uc.inst.Metrics.ObserveSubmission(domain.SubmissionFailed, uc.inst.Now().Sub(start))
		uc.inst.Logger.ErrorContext(ctx, "submission_failed", "form_id", formID, "error", transferErr)
		return nil, &domain.Rejection{Notice: notice, Err: err}
	}

	released := form.FinishSubmit(true, uc.inst.Now())
	releaseFiles(ctx, uc.storage, uc.inst.Logger, released)

	notice := submittedNotice(formID, uc.inst.Now())
	record := uc.record(ctx, formID, domain.SubmissionSucceeded, data, nil)
	uc.notify(ctx, notice)
	uc.inst.Metrics.ObserveSubmission(domain.SubmissionSucceeded, uc.inst.Now().Sub(start))
	uc.inst.Logger.InfoContext(ctx, "submission_succeeded", "form_id", formID, "files", data.FileCount())

	return &domain.SubmissionResult{
		Record: record,
		Notice: notice,
		Form:   form.Snapshot(),
	}, nil
}

func (uc *SubmitUseCase) ListByForm(ctx context.Context, formID string) ([]domain.SubmissionRecord, error) {
	if uc.log == nil {
		return []domain.SubmissionRecord{}, nil
	}
	return uc.log.ListByForm(ctx, formID)
}

func (uc *SubmitUseCase) runTransfer(ctx context.Context, formID string, data domain.FormData) error {
	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}
	return uc.transfer.Transfer(ctx, formID, data)
}

func (uc *SubmitUseCase) record(
	ctx context.Context,
	formID string,
	status domain.SubmissionStatus,
	data domain.FormData,
	cause error,
) domain.SubmissionRecord {
	counts := make(map[domain.SlotName]int, len(data))
	for slot, files := range data {
		counts[slot] = len(files)
	}
	record := domain.SubmissionRecord{
		ID:         uuid.NewString(),
		FormID:     formID,
		Status:     status,
		FileCount:  data.FileCount(),
		SlotCounts: counts,
		CreatedAt:  uc.inst.Now(),
	}
	if cause != nil {
		record.Error = cause.Error()
	}
	if uc.log == nil {
		return record
	}
	if err := uc.log.Record(context.WithoutCancel(ctx), record); err != nil {
		uc.inst.Logger.WarnContext(ctx, "submission_log_failed", "form_id", formID, "status", string(status), "error", err)
	}
	return record
}

func (uc *SubmitUseCase) notify(ctx context.Context, notice domain.Notice) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.Notify(ctx, notice); err != nil {
		uc.inst.Logger.WarnContext(ctx, "notice_delivery_failed", "form_id", notice.FormID, "title", notice.Title, "error", err)
	}
}
