package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

// NewFormReleaser returns the registry callback that empties an evicted or
// deleted form and discards its staged bytes. A form that is submitting is
// emptied by the submission itself once the transfer returns.
func NewFormReleaser(storage ports.ObjectStorage, logger *slog.Logger) func(*Form) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(form *Form) {
		files, deferred := form.Release(time.Now().UTC())
		if deferred {
			logger.Info("form_release_deferred", "form_id", form.ID())
			return
		}
		if len(files) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		releaseFiles(ctx, storage, logger, files)
		logger.Info("form_released", "form_id", form.ID(), "files", len(files))
	}
}

func releaseFiles(ctx context.Context, storage ports.ObjectStorage, logger *slog.Logger, files []domain.UploadedFile) {
	for _, file := range files {
		if file.StorageKey == "" {
			continue
		}
		if err := storage.Delete(ctx, file.StorageKey); err != nil {
			logger.WarnContext(ctx, "staged_file_delete_failed", "file_id", file.ID, "key", file.StorageKey, "error", err)
		}
	}
}
