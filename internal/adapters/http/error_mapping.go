package httpadapter

import (
	"net/http"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrFormNotFound), domain.IsKind(err, domain.ErrUnknownSlot):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrCapacityExceeded), domain.IsKind(err, domain.ErrSubmissionInProgress):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrUnsupportedType), domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrOversizedFile):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrValidationIncomplete):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrTransferFailed):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
