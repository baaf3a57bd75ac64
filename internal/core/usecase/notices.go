package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

func batchAcceptedNotice(formID string, cfg domain.SlotConfig, count int, now time.Time) domain.Notice {
	title := "File added"
	message := fmt.Sprintf("1 file added to %s.", cfg.Title)
	if count != 1 {
		title = "Files added"
		message = fmt.Sprintf("%d files added to %s.", count, cfg.Title)
	}
	return domain.Notice{
		FormID:    formID,
		Title:     title,
		Message:   message,
		Severity:  domain.SeveritySuccess,
		CreatedAt: now,
	}
}

func submittedNotice(formID string, now time.Time) domain.Notice {
	return domain.Notice{
		FormID:    formID,
		Title:     "Documents submitted",
		Message:   "Your documents were submitted successfully.",
		Severity:  domain.SeveritySuccess,
		CreatedAt: now,
	}
}

// rejectionNotice decides the toast for a refused action. cfg is nil for
// form-level actions.
func rejectionNotice(formID string, cfg *domain.SlotConfig, err error, now time.Time) domain.Notice {
	notice := domain.Notice{
		FormID:    formID,
		Severity:  domain.SeverityError,
		CreatedAt: now,
	}

	switch {
	case domain.IsKind(err, domain.ErrCapacityExceeded) && cfg != nil:
		notice.Title = "Too many files"
		notice.Message = fmt.Sprintf("%s accepts at most %s.", cfg.Title, plural(cfg.MaxFiles, "file"))
	case domain.IsKind(err, domain.ErrUnsupportedType), domain.IsKind(err, domain.ErrOversizedFile):
		issues := domain.IssuesFrom(err)
		notice.Title = "Invalid file"
		if len(issues) > 1 {
			notice.Title = "Invalid files"
		}
		reasons := make([]string, 0, len(issues))
		for _, issue := range issues {
			reasons = append(reasons, issue.Reason)
		}
		notice.Message = strings.Join(reasons, "; ")
		if len(reasons) == 0 {
			notice.Message = "The upload is too large. Please send fewer or smaller files."
			if domain.IsKind(err, domain.ErrUnsupportedType) {
				notice.Message = "The upload could not be read as a supported file."
			}
		}
	case domain.IsKind(err, domain.ErrValidationIncomplete):
		notice.Title = "Missing documents"
		notice.Message = "Please upload all required documents before submitting."
	case domain.IsKind(err, domain.ErrSubmissionInProgress):
		notice.Title = "Submission in progress"
		notice.Message = "Please wait until the current submission finishes."
	case domain.IsKind(err, domain.ErrTransferFailed):
		notice.Title = "Submission failed"
		notice.Message = "Your documents could not be submitted. Please try again."
	default:
		notice.Title = "Something went wrong"
		notice.Message = "The files could not be processed. Please try again."
	}
	return notice
}

func missingDocumentsNotice(formID string, missing []domain.SlotConfig, now time.Time) domain.Notice {
	return domain.Notice{
		FormID:    formID,
		Title:     "Missing documents",
		Message:   fmt.Sprintf("Please upload: %s.", slotTitles(missing)),
		Severity:  domain.SeverityError,
		CreatedAt: now,
	}
}

func slotTitles(slots []domain.SlotConfig) string {
	titles := make([]string, 0, len(slots))
	for _, cfg := range slots {
		titles = append(titles, cfg.Title)
	}
	return strings.Join(titles, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
