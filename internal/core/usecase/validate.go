package usecase

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

// ValidateFile decides whether a single file may enter a slot. Type is checked
// before size.
func ValidateFile(filename string, size int64, cfg domain.SlotConfig) error {
	cfg = cfg.WithDefaults()

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || !cfg.AcceptsExtension(ext) {
		return fmt.Errorf("%w: %q is not an accepted file type (accepted: %s)",
			domain.ErrUnsupportedType, filename, cfg.AcceptedLabel())
	}
	if size > cfg.MaxFileSize {
		return fmt.Errorf("%w: %q is %s, the limit is %s",
			domain.ErrOversizedFile, filename, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(cfg.MaxFileSize)))
	}
	return nil
}

// checkBatch applies the capacity rule and then validates every candidate.
// The batch is accepted or rejected as a whole.
func checkBatch(cfg domain.SlotConfig, current int, candidates []domain.FileCandidate) error {
	if current+len(candidates) > cfg.MaxFiles {
		return capacityError(cfg, current, len(candidates))
	}

	var issues []domain.FileIssue
	for _, candidate := range candidates {
		if err := ValidateFile(candidate.Filename, candidate.Size, cfg); err != nil {
			issues = append(issues, domain.NewFileIssue(candidate.Filename, err))
		}
	}
	if len(issues) > 0 {
		return &domain.BatchError{Slot: cfg.Name, Issues: issues}
	}
	return nil
}

func capacityError(cfg domain.SlotConfig, current, added int) error {
	return fmt.Errorf("%w: %s accepts at most %d file(s), it holds %d and %d were added",
		domain.ErrCapacityExceeded, cfg.Title, cfg.MaxFiles, current, added)
}
