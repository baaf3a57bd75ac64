package memory

import (
	"context"
	"sync"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

// SubmissionLog keeps submission records in process memory. It backs the
// history endpoint when no database is configured.
type SubmissionLog struct {
	mu      sync.RWMutex
	records map[string][]domain.SubmissionRecord
}

func NewSubmissionLog() *SubmissionLog {
	return &SubmissionLog{records: make(map[string][]domain.SubmissionRecord)}
}

func (l *SubmissionLog) Record(_ context.Context, record domain.SubmissionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[record.FormID] = append(l.records[record.FormID], record)
	return nil
}

// ListByForm returns records newest first.
func (l *SubmissionLog) ListByForm(_ context.Context, formID string) ([]domain.SubmissionRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	src := l.records[formID]
	out := make([]domain.SubmissionRecord, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, src[i])
	}
	return out, nil
}
