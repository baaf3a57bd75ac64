package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

const multipartMemory = 8 << 20

func (rt *Router) createForm(w http.ResponseWriter, r *http.Request) {
	snapshot, err := rt.intake.CreateForm(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshot)
}

func (rt *Router) getForm(w http.ResponseWriter, r *http.Request) {
	snapshot, err := rt.intake.GetForm(r.Context(), r.PathValue("formID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (rt *Router) deleteForm(w http.ResponseWriter, r *http.Request) {
	if err := rt.intake.DeleteForm(r.Context(), r.PathValue("formID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) addFiles(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isMaxBytesError(err) {
			cause := domain.WrapError(domain.ErrOversizedFile, "read upload",
				fmt.Errorf("request body exceeds %d bytes", rt.cfg.MaxUploadBytes))
			writeError(w, rt.intake.RejectUpload(r.Context(), r.PathValue("formID"),
				domain.SlotName(strings.TrimSpace(r.PathValue("slot"))), cause))
			return
		}
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "read upload", err))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.Warn("multipart_cleanup_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		}
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("multipart field 'files' is required")))
		return
	}

	result, err := rt.intake.AddFiles(
		r.Context(),
		r.PathValue("formID"),
		domain.SlotName(strings.TrimSpace(r.PathValue("slot"))),
		candidatesFromHeaders(headers),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func candidatesFromHeaders(headers []*multipart.FileHeader) []domain.FileCandidate {
	out := make([]domain.FileCandidate, 0, len(headers))
	for _, fh := range headers {
		out = append(out, domain.FileCandidate{
			Filename:  fh.Filename,
			Size:      fh.Size,
			MediaType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return out
}

func (rt *Router) removeFile(w http.ResponseWriter, r *http.Request) {
	snapshot, err := rt.intake.RemoveFile(
		r.Context(),
		r.PathValue("formID"),
		domain.SlotName(r.PathValue("slot")),
		r.PathValue("fileID"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (rt *Router) submitForm(w http.ResponseWriter, r *http.Request) {
	result, err := rt.submitter.Submit(r.Context(), r.PathValue("formID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) listSubmissions(w http.ResponseWriter, r *http.Request) {
	formID := r.PathValue("formID")
	if _, err := rt.intake.GetForm(r.Context(), formID); err != nil {
		writeError(w, err)
		return
	}
	records, err := rt.history.ListByForm(r.Context(), formID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": records})
}
