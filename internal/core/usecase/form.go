package usecase

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

// Form is one live form instance: the slot states plus the submission flag.
// Every method is safe for concurrent use; each mutation is one critical
// section.
type Form struct {
	id        string
	createdAt time.Time

	mu        sync.Mutex
	order     []domain.SlotName
	slots     map[domain.SlotName]*Slot
	state     domain.SubmissionState
	released  bool
	updatedAt time.Time
}

func NewForm(id string, catalog []domain.SlotConfig, now time.Time) *Form {
	f := &Form{
		id:        id,
		createdAt: now,
		updatedAt: now,
		order:     make([]domain.SlotName, 0, len(catalog)),
		slots:     make(map[domain.SlotName]*Slot, len(catalog)),
		state:     domain.SubmissionIdle,
	}
	for _, cfg := range catalog {
		f.order = append(f.order, cfg.Name)
		f.slots[cfg.Name] = NewSlot(cfg)
	}
	return f
}

func (f *Form) ID() string {
	return f.id
}

func (f *Form) SlotConfig(name domain.SlotName) (domain.SlotConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	slot, err := f.slotLocked(name)
	if err != nil {
		return domain.SlotConfig{}, err
	}
	return slot.Config(), nil
}

// CompletionPercentage is the share of required slots holding at least one
// file, rounded to the nearest integer percent. Optional slots do not count.
func (f *Form) CompletionPercentage() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completionLocked()
}

// IsValid reports whether every required slot holds at least one file.
func (f *Form) IsValid() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.missingLocked()) == 0
}

// MissingSlots lists the required slots that are still empty, in form order.
func (f *Form) MissingSlots() []domain.SlotConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.missingLocked()
}

func (f *Form) State() domain.SubmissionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Data copies the current file set.
func (f *Form) Data() domain.FormData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dataLocked()
}

func (f *Form) Snapshot() domain.FormSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	views := make([]domain.SlotView, 0, len(f.order))
	for _, name := range f.order {
		slot := f.slots[name]
		cfg := slot.Config()
		files := slot.Files()
		fileViews := make([]domain.FileView, 0, len(files))
		for _, file := range files {
			fileViews = append(fileViews, domain.FileView{
				ID:        file.ID,
				Filename:  file.Filename,
				MediaType: file.MediaType,
				Size:      file.Size,
				SizeLabel: humanize.IBytes(uint64(file.Size)),
				Preview:   file.Preview,
				AddedAt:   file.AddedAt,
			})
		}
		views = append(views, domain.SlotView{
			Name:               cfg.Name,
			Title:              cfg.Title,
			Description:        cfg.Description,
			Accepted:           append([]domain.FileType(nil), cfg.Accepted...),
			AcceptedExtensions: cfg.AcceptedExtensions(),
			MaxFiles:           cfg.MaxFiles,
			MaxFileSize:        cfg.MaxFileSize,
			MaxFileSizeLabel:   humanize.IBytes(uint64(cfg.MaxFileSize)),
			Required:           cfg.Required(),
			Complete:           slot.Len() > 0,
			Files:              fileViews,
		})
	}

	valid := len(f.missingLocked()) == 0
	return domain.FormSnapshot{
		ID:                   f.id,
		Slots:                views,
		CompletionPercentage: f.completionLocked(),
		Valid:                valid,
		State:                f.state,
		CanSubmit:            valid && f.state == domain.SubmissionIdle,
		CreatedAt:            f.createdAt,
		UpdatedAt:            f.updatedAt,
	}
}

// CheckBatch validates a batch against the slot without changing state.
func (f *Form) CheckBatch(name domain.SlotName, candidates []domain.FileCandidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.idleLocked(); err != nil {
		return err
	}
	slot, err := f.slotLocked(name)
	if err != nil {
		return err
	}
	return slot.CheckBatch(candidates)
}

// CommitBatch appends a prepared batch in one transition.
func (f *Form) CommitBatch(name domain.SlotName, files []domain.UploadedFile, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.idleLocked(); err != nil {
		return err
	}
	slot, err := f.slotLocked(name)
	if err != nil {
		return err
	}
	if err := slot.Append(files); err != nil {
		return err
	}
	f.updatedAt = now
	return nil
}

// RemoveFile drops a file from a slot. Removing an unknown id is a no-op.
func (f *Form) RemoveFile(name domain.SlotName, fileID string, now time.Time) (domain.UploadedFile, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.idleLocked(); err != nil {
		return domain.UploadedFile{}, false, err
	}
	slot, err := f.slotLocked(name)
	if err != nil {
		return domain.UploadedFile{}, false, err
	}
	removed, ok := slot.RemoveFile(fileID)
	if ok {
		f.updatedAt = now
	}
	return removed, ok, nil
}

// Release marks the form as gone and empties every slot. While a
// submission is running the files stay in place until FinishSubmit and
// deferred is true.
func (f *Form) Release(now time.Time) (dropped []domain.UploadedFile, deferred bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.released = true
	if f.state == domain.SubmissionSubmitting {
		return nil, true
	}
	return f.resetLocked(now), false
}

// BeginSubmit moves Idle to Submitting when the form is valid and returns
// the file set to transfer.
func (f *Form) BeginSubmit() (domain.FormData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.idleLocked(); err != nil {
		return nil, err
	}
	if missing := f.missingLocked(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidationIncomplete, slotTitles(missing))
	}
	f.state = domain.SubmissionSubmitting
	return f.dataLocked(), nil
}

// FinishSubmit returns to Idle. On success every slot is cleared and the
// dropped files are returned; on failure state is left as it was unless the
// form was released meanwhile, in which case the files are dropped anyway.
func (f *Form) FinishSubmit(success bool, now time.Time) []domain.UploadedFile {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = domain.SubmissionIdle
	if !success && !f.released {
		return nil
	}
	return f.resetLocked(now)
}

func (f *Form) slotLocked(name domain.SlotName) (*Slot, error) {
	slot, ok := f.slots[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSlot, name)
	}
	return slot, nil
}

func (f *Form) idleLocked() error {
	if f.released {
		return fmt.Errorf("%w: id=%s", domain.ErrFormNotFound, f.id)
	}
	if f.state == domain.SubmissionSubmitting {
		return fmt.Errorf("%w: form %s", domain.ErrSubmissionInProgress, f.id)
	}
	return nil
}

func (f *Form) completionLocked() int {
	required, filled := 0, 0
	for _, name := range f.order {
		slot := f.slots[name]
		if !slot.Config().Required() {
			continue
		}
		required++
		if slot.Len() > 0 {
			filled++
		}
	}
	if required == 0 {
		return 100
	}
	return int(math.Round(float64(filled) * 100 / float64(required)))
}

func (f *Form) missingLocked() []domain.SlotConfig {
	var missing []domain.SlotConfig
	for _, name := range f.order {
		slot := f.slots[name]
		if slot.Config().Required() && slot.Len() == 0 {
			missing = append(missing, slot.Config())
		}
	}
	return missing
}

func (f *Form) dataLocked() domain.FormData {
	data := make(domain.FormData, len(f.order))
	for _, name := range f.order {
		data[name] = f.slots[name].Files()
	}
	return data
}

func (f *Form) resetLocked(now time.Time) []domain.UploadedFile {
	var removed []domain.UploadedFile
	for _, name := range f.order {
		removed = append(removed, f.slots[name].Clear()...)
	}
	f.updatedAt = now
	return removed
}
