package domain

import "time"

type SubmissionState string

const (
	SubmissionIdle       SubmissionState = "idle"
	SubmissionSubmitting SubmissionState = "submitting"
)

type SubmissionStatus string

const (
	SubmissionSucceeded SubmissionStatus = "succeeded"
	SubmissionFailed    SubmissionStatus = "failed"
	SubmissionRejected  SubmissionStatus = "rejected"
)

// SubmissionRecord is one entry of the submission log. It never carries file content.
type SubmissionRecord struct {
	ID         string           `json:"id"`
	FormID     string           `json:"form_id"`
	Status     SubmissionStatus `json:"status"`
	FileCount  int              `json:"file_count"`
	SlotCounts map[SlotName]int `json:"slot_counts"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

type SubmissionResult struct {
	Record SubmissionRecord `json:"record"`
	Notice Notice           `json:"notice"`
	Form   FormSnapshot     `json:"form"`
}

type FileView struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	MediaType string    `json:"media_type"`
	Size      int64     `json:"size"`
	SizeLabel string    `json:"size_label"`
	Preview   string    `json:"preview,omitempty"`
	AddedAt   time.Time `json:"added_at"`
}

type SlotView struct {
	Name               SlotName   `json:"name"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Accepted           []FileType `json:"accepted"`
	AcceptedExtensions []string   `json:"accepted_extensions"`
	MaxFiles           int        `json:"max_files"`
	MaxFileSize        int64      `json:"max_file_size"`
	MaxFileSizeLabel   string     `json:"max_file_size_label"`
	Required           bool       `json:"required"`
	Complete           bool       `json:"complete"`
	Files              []FileView `json:"files"`
}

// FormSnapshot is the rendered state of one form instance.
type FormSnapshot struct {
	ID                   string          `json:"id"`
	Slots                []SlotView      `json:"slots"`
	CompletionPercentage int             `json:"completion_percentage"`
	Valid                bool            `json:"valid"`
	State                SubmissionState `json:"state"`
	CanSubmit            bool            `json:"can_submit"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

type BatchResult struct {
	Files  []UploadedFile `json:"files"`
	Notice Notice         `json:"notice"`
	Form   FormSnapshot   `json:"form"`
}
