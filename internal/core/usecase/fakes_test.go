package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type storageFake struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	saveErr error
	// saveBarrier, when set, holds every Save until all expected callers arrive.
	saveBarrier *sync.WaitGroup
}

func newStorageFake() *storageFake {
	return &storageFake{objects: make(map[string][]byte)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saveBarrier != nil {
		f.saveBarrier.Done()
		f.saveBarrier.Wait()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.objects[key]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *storageFake) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type notifierFake struct {
	mu      sync.Mutex
	notices []domain.Notice
}

func (f *notifierFake) Notify(_ context.Context, notice domain.Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice)
	return nil
}

func (f *notifierFake) last() domain.Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.notices) == 0 {
		return domain.Notice{}
	}
	return f.notices[len(f.notices)-1]
}

type transferFake struct {
	mu      sync.Mutex
	calls   int
	data    domain.FormData
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *transferFake) Transfer(ctx context.Context, _ string, data domain.FormData) error {
	f.mu.Lock()
	f.calls++
	f.data = data
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *transferFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type submissionLogFake struct {
	mu      sync.Mutex
	records []domain.SubmissionRecord
}

func (f *submissionLogFake) Record(_ context.Context, record domain.SubmissionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return nil
}

func (f *submissionLogFake) ListByForm(_ context.Context, formID string) ([]domain.SubmissionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SubmissionRecord, 0)
	for _, record := range f.records {
		if record.FormID == formID {
			out = append(out, record)
		}
	}
	return out, nil
}

type metricsFake struct {
	mu          sync.Mutex
	batches     map[string]int
	submissions map[domain.SubmissionStatus]int
}

func newMetricsFake() *metricsFake {
	return &metricsFake{
		batches:     make(map[string]int),
		submissions: make(map[domain.SubmissionStatus]int),
	}
}

func (f *metricsFake) ObserveBatch(_ domain.SlotName, outcome string, _ int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches[outcome]++
}

func (f *metricsFake) ObserveSubmission(status domain.SubmissionStatus, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions[status]++
}

func testCatalog() []domain.SlotConfig {
	all := []domain.FileType{domain.FileTypePDF, domain.FileTypeJPG, domain.FileTypePNG}
	return []domain.SlotConfig{
		{Name: domain.SlotIdentity, Title: "Identity Document", Accepted: all, MaxFiles: 2},
		{Name: domain.SlotRegistration, Title: "Business Registration", Accepted: all},
		{Name: domain.SlotTax, Title: "Tax Certificate", Accepted: all},
		{Name: domain.SlotLogo, Title: "Company Logo", Accepted: []domain.FileType{domain.FileTypeJPG, domain.FileTypePNG}, Optional: true},
	}
}

type intakeHarness struct {
	registry *FormRegistry
	storage  *storageFake
	notifier *notifierFake
	metrics  *metricsFake
	intake   *IntakeUseCase
}

func newIntakeHarness(t *testing.T) *intakeHarness {
	t.Helper()
	storage := newStorageFake()
	registry, err := NewFormRegistry(16, NewFormReleaser(storage, nil))
	if err != nil {
		t.Fatalf("NewFormRegistry() error = %v", err)
	}
	notifier := &notifierFake{}
	metrics := newMetricsFake()
	intake := NewIntakeUseCase(registry, testCatalog(), storage, NewPreviewGenerator(2), notifier, Instrumentation{Metrics: metrics})
	return &intakeHarness{
		registry: registry,
		storage:  storage,
		notifier: notifier,
		metrics:  metrics,
		intake:   intake,
	}
}

func (h *intakeHarness) newForm(t *testing.T) string {
	t.Helper()
	snapshot, err := h.intake.CreateForm(context.Background())
	if err != nil {
		t.Fatalf("CreateForm() error = %v", err)
	}
	return snapshot.ID
}

func (h *intakeHarness) mustAdd(t *testing.T, formID string, slot domain.SlotName, candidates ...domain.FileCandidate) *domain.BatchResult {
	t.Helper()
	result, err := h.intake.AddFiles(context.Background(), formID, slot, candidates)
	if err != nil {
		t.Fatalf("AddFiles(%s) error = %v", slot, err)
	}
	return result
}

func pdf(name string, size int) domain.FileCandidate {
	candidate := domain.CandidateFromBytes(name, "application/pdf", []byte("%PDF-1.7"))
	candidate.Size = int64(size)
	return candidate
}

func slotFiles(snapshot domain.FormSnapshot, slot domain.SlotName) []domain.FileView {
	for _, view := range snapshot.Slots {
		if view.Name == slot {
			return view.Files
		}
	}
	return nil
}

func isRejection(err error) bool {
	var rejection *domain.Rejection
	return errors.As(err, &rejection)
}
