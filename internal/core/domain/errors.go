package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedType      = errors.New("unsupported file type")
	ErrOversizedFile        = errors.New("file too large")
	ErrCapacityExceeded     = errors.New("slot capacity exceeded")
	ErrValidationIncomplete = errors.New("required documents missing")
	ErrTransferFailed       = errors.New("document transfer failed")
	ErrSubmissionInProgress = errors.New("submission in progress")
	ErrFormNotFound         = errors.New("form not found")
	ErrUnknownSlot          = errors.New("unknown slot")
	ErrInvalidInput         = errors.New("invalid input")
	ErrTemporary            = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

var kindCodes = []struct {
	kind error
	code string
}{
	{ErrUnsupportedType, "unsupported_type"},
	{ErrOversizedFile, "oversized_file"},
	{ErrCapacityExceeded, "capacity_exceeded"},
	{ErrValidationIncomplete, "validation_incomplete"},
	{ErrTransferFailed, "transfer_failed"},
	{ErrSubmissionInProgress, "submission_in_progress"},
	{ErrFormNotFound, "form_not_found"},
	{ErrUnknownSlot, "unknown_slot"},
	{ErrInvalidInput, "invalid_input"},
	{ErrTemporary, "temporary"},
}

// KindCode returns the stable machine-readable code of the first known kind in err.
func KindCode(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kindCodes {
		if errors.Is(err, k.kind) {
			return k.code
		}
	}
	return "internal"
}

// FileIssue explains why one file of a batch was refused.
type FileIssue struct {
	Filename string `json:"filename"`
	Kind     string `json:"kind"`
	Reason   string `json:"reason"`

	err error
}

func NewFileIssue(filename string, err error) FileIssue {
	reason := err.Error()
	for _, k := range kindCodes {
		prefix := k.kind.Error() + ": "
		if strings.HasPrefix(reason, prefix) {
			reason = strings.TrimPrefix(reason, prefix)
			break
		}
	}
	return FileIssue{
		Filename: filename,
		Kind:     KindCode(err),
		Reason:   reason,
		err:      err,
	}
}

// BatchError voids a whole batch. Every failing file is listed.
type BatchError struct {
	Slot   SlotName
	Issues []FileIssue
}

func (e *BatchError) Error() string {
	reasons := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		reasons = append(reasons, issue.Reason)
	}
	return fmt.Sprintf("batch rejected for slot %s: %s", e.Slot, strings.Join(reasons, "; "))
}

func (e *BatchError) Unwrap() []error {
	out := make([]error, 0, len(e.Issues))
	for _, issue := range e.Issues {
		if issue.err != nil {
			out = append(out, issue.err)
		}
	}
	return out
}

// Rejection carries the notice shown to the user alongside the cause.
type Rejection struct {
	Notice Notice
	Err    error
}

func (r *Rejection) Error() string {
	return r.Err.Error()
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// NoticeFrom extracts the user-facing notice attached to err, if any.
func NoticeFrom(err error) (Notice, bool) {
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return rejection.Notice, true
	}
	return Notice{}, false
}

// IssuesFrom extracts the per-file issues of a rejected batch.
func IssuesFrom(err error) []FileIssue {
	var batchErr *BatchError
	if errors.As(err, &batchErr) {
		return batchErr.Issues
	}
	return nil
}
