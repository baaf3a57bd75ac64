package usecase

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

type IntakeUseCase struct {
	registry *FormRegistry
	catalog  []domain.SlotConfig
	storage  ports.ObjectStorage
	previews *PreviewGenerator
	notifier ports.Notifier
	inst     Instrumentation
}

func NewIntakeUseCase(
	registry *FormRegistry,
	catalog []domain.SlotConfig,
	storage ports.ObjectStorage,
	previews *PreviewGenerator,
	notifier ports.Notifier,
	inst Instrumentation,
) *IntakeUseCase {
	return &IntakeUseCase{
		registry: registry,
		catalog:  catalog,
		storage:  storage,
		previews: previews,
		notifier: notifier,
		inst:     inst.normalize(),
	}
}

func (uc *IntakeUseCase) CreateForm(ctx context.Context) (*domain.FormSnapshot, error) {
	form := NewForm(uuid.NewString(), uc.catalog, uc.inst.Now())
	uc.registry.Add(form)
	uc.inst.Logger.InfoContext(ctx, "form_created", "form_id", form.ID(), "slots", len(uc.catalog))

	snapshot := form.Snapshot()
	return &snapshot, nil
}

func (uc *IntakeUseCase) GetForm(_ context.Context, formID string) (*domain.FormSnapshot, error) {
	form, err := uc.registry.Get(formID)
	if err != nil {
		return nil, err
	}
	snapshot := form.Snapshot()
	return &snapshot, nil
}

// DeleteForm drops a form and its staged files. A form whose submission is
// still running is refused; the transfer owns its files until it returns.
func (uc *IntakeUseCase) DeleteForm(ctx context.Context, formID string) error {
	form, err := uc.registry.Get(formID)
	if err != nil {
		return err
	}
	if form.State() == domain.SubmissionSubmitting {
		err := fmt.Errorf("%w: form %s", domain.ErrSubmissionInProgress, formID)
		notice := rejectionNotice(formID, nil, err, uc.inst.Now())
		uc.notify(ctx, notice)
		uc.inst.Logger.WarnContext(ctx, "form_delete_rejected", "form_id", formID, "error", err)
		return &domain.Rejection{Notice: notice, Err: err}
	}
	if !uc.registry.Remove(formID) {
		return fmt.Errorf("%w: id=%s", domain.ErrFormNotFound, formID)
	}
	uc.inst.Logger.InfoContext(ctx, "form_deleted", "form_id", formID)
	return nil
}

// AddFiles admits a batch into one slot. The batch is all-or-nothing: a
// capacity violation or any invalid file rejects every candidate.
func (uc *IntakeUseCase) AddFiles(
	ctx context.Context,
	formID string,
	slot domain.SlotName,
	candidates []domain.FileCandidate,
) (*domain.BatchResult, error) {
	form, err := uc.registry.Get(formID)
	if err != nil {
		return nil, err
	}
	cfg, err := form.SlotConfig(slot)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &domain.BatchResult{Files: []domain.UploadedFile{}, Form: form.Snapshot()}, nil
	}

	if err := form.CheckBatch(slot, candidates); err != nil {
		return nil, uc.reject(ctx, formID, &cfg, len(candidates), err)
	}

	previews, err := uc.previews.GenerateBatch(ctx, candidates)
	if err != nil {
		return nil, uc.reject(ctx, formID, &cfg, len(candidates), err)
	}

	files, err := uc.stage(ctx, formID, cfg, candidates, previews)
	if err != nil {
		return nil, uc.reject(ctx, formID, &cfg, len(candidates), err)
	}

	if err := form.CommitBatch(slot, files, uc.inst.Now()); err != nil {
		releaseFiles(ctx, uc.storage, uc.inst.Logger, files)
		return nil, uc.reject(ctx, formID, &cfg, len(candidates), err)
	}

	notice := batchAcceptedNotice(formID, cfg, len(files), uc.inst.Now())
	uc.notify(ctx, notice)
	uc.inst.Metrics.ObserveBatch(slot, "accepted", len(files))
	uc.inst.Logger.InfoContext(ctx, "batch_accepted",
		"form_id", formID,
		"slot", string(slot),
		"files", len(files),
	)

	return &domain.BatchResult{
		Files:  files,
		Notice: notice,
		Form:   form.Snapshot(),
	}, nil
}

// RemoveFile drops one file. An unknown file id leaves the form unchanged.
func (uc *IntakeUseCase) RemoveFile(
	ctx context.Context,
	formID string,
	slot domain.SlotName,
	fileID string,
) (*domain.FormSnapshot, error) {
	form, err := uc.registry.Get(formID)
	if err != nil {
		return nil, err
	}

	removed, ok, err := form.RemoveFile(slot, fileID, uc.inst.Now())
	if err != nil {
		if domain.IsKind(err, domain.ErrSubmissionInProgress) {
			notice := rejectionNotice(formID, nil, err, uc.inst.Now())
			uc.notify(ctx, notice)
			return nil, &domain.Rejection{Notice: notice, Err: err}
		}
		return nil, err
	}
	if ok {
		releaseFiles(ctx, uc.storage, uc.inst.Logger, []domain.UploadedFile{removed})
		uc.inst.Logger.InfoContext(ctx, "file_removed", "form_id", formID, "slot", string(slot), "file_id", fileID)
	}

	snapshot := form.Snapshot()
	return &snapshot, nil
}

func (uc *IntakeUseCase) stage(
	ctx context.Context,
	formID string,
	cfg domain.SlotConfig,
	candidates []domain.FileCandidate,
	previews []string,
) ([]domain.UploadedFile, error) {
	files := make([]domain.UploadedFile, 0, len(candidates))
	now := uc.inst.Now()

	for i, candidate := range candidates {
		id := uuid.NewString()
		key := fmt.Sprintf("%s_%s_%s", formID, id, sanitizeFilename(candidate.Filename))

		if err := uc.save(ctx, key, candidate); err != nil {
			releaseFiles(ctx, uc.storage, uc.inst.Logger, files)
			return nil, err
		}

		files = append(files, domain.UploadedFile{
			ID:         id,
			Slot:       cfg.Name,
			Filename:   candidate.Filename,
			MediaType:  mediaTypeOf(candidate),
			Size:       candidate.Size,
			StorageKey: key,
			Preview:    previews[i],
			AddedAt:    now,
		})
	}
	return files, nil
}

func (uc *IntakeUseCase) save(ctx context.Context, key string, candidate domain.FileCandidate) error {
	if candidate.Open == nil {
		return domain.WrapError(domain.ErrInvalidInput, "stage file", fmt.Errorf("%s has no content", candidate.Filename))
	}
	rc, err := candidate.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", candidate.Filename, err)
	}
	defer rc.Close()

	if err := uc.storage.Save(ctx, key, rc); err != nil {
		return fmt.Errorf("save to staging storage: %w", err)
	}
	return nil
}

// RejectUpload turns a transport-level refusal (request body over the limit)
// into the same notice, metric and log line a rejected batch produces.
func (uc *IntakeUseCase) RejectUpload(ctx context.Context, formID string, slot domain.SlotName, cause error) error {
	form, err := uc.registry.Get(formID)
	if err != nil {
		return err
	}
	cfg, err := form.SlotConfig(slot)
	if err != nil {
		return err
	}
	return uc.reject(ctx, formID, &cfg, 0, cause)
}

func (uc *IntakeUseCase) reject(ctx context.Context, formID string, cfg *domain.SlotConfig, files int, err error) error {
	notice := rejectionNotice(formID, cfg, err, uc.inst.Now())
	uc.notify(ctx, notice)

	slot := domain.SlotName("")
	if cfg != nil {
		slot = cfg.Name
	}
	uc.inst.Metrics.ObserveBatch(slot, domain.KindCode(err), files)
	uc.inst.Logger.WarnContext(ctx, "batch_rejected",
		"form_id", formID,
		"slot", string(slot),
		"files", files,
		"kind", domain.KindCode(err),
		"error", err,
	)
	return &domain.Rejection{Notice: notice, Err: err}
}

func (uc *IntakeUseCase) notify(ctx context.Context, notice domain.Notice) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.Notify(ctx, notice); err != nil {
		uc.inst.Logger.WarnContext(ctx, "notice_delivery_failed", "form_id", notice.FormID, "title", notice.Title, "error", err)
	}
}

func mediaTypeOf(candidate domain.FileCandidate) string {
	if mt := baseMediaType(candidate.MediaType); mt != "" && mt != "application/octet-stream" {
		return mt
	}
	if mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(candidate.Filename))); mt != "" {
		return baseMediaType(mt)
	}
	return "application/octet-stream"
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
