package usecase

import (
	"github.com/kirillkom/document-intake/internal/core/domain"
)

// Slot holds the accepted files of one named slot. It is not safe for
// concurrent use; Form serializes access.
type Slot struct {
	cfg   domain.SlotConfig
	files []domain.UploadedFile
}

func NewSlot(cfg domain.SlotConfig) *Slot {
	return &Slot{cfg: cfg.WithDefaults()}
}

func (s *Slot) Config() domain.SlotConfig {
	return s.cfg
}

func (s *Slot) Len() int {
	return len(s.files)
}

func (s *Slot) Files() []domain.UploadedFile {
	out := make([]domain.UploadedFile, len(s.files))
	copy(out, s.files)
	return out
}

// CheckBatch reports whether the whole batch could be admitted right now.
func (s *Slot) CheckBatch(candidates []domain.FileCandidate) error {
	return checkBatch(s.cfg, len(s.files), candidates)
}

// Append admits already validated files. The capacity rule is re-checked so
// that two batches prepared concurrently cannot overflow the slot.
func (s *Slot) Append(files []domain.UploadedFile) error {
	if len(s.files)+len(files) > s.cfg.MaxFiles {
		return capacityError(s.cfg, len(s.files), len(files))
	}
	s.files = append(s.files, files...)
	return nil
}

// RemoveFile drops the file with the given id. Unknown ids are ignored.
func (s *Slot) RemoveFile(id string) (domain.UploadedFile, bool) {
	for i, f := range s.files {
		if f.ID == id {
			s.files = append(s.files[:i], s.files[i+1:]...)
			return f, true
		}
	}
	return domain.UploadedFile{}, false
}

// Clear empties the slot and returns what it held.
func (s *Slot) Clear() []domain.UploadedFile {
	removed := s.files
	s.files = nil
	return removed
}
