package httpadapter

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/document-intake/internal/config"
	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/usecase"
	"github.com/kirillkom/document-intake/internal/infrastructure/repository/memory"
	"github.com/kirillkom/document-intake/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/document-intake/internal/infrastructure/transfer/simulated"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type uploadPart struct {
	filename    string
	contentType string
	content     []byte
}

func newFormsHandler(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()
	storage, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}
	registry, err := usecase.NewFormRegistry(16, usecase.NewFormReleaser(storage, nil))
	if err != nil {
		t.Fatalf("NewFormRegistry() error = %v", err)
	}
	intake := usecase.NewIntakeUseCase(registry, config.DefaultCatalog(), storage, usecase.NewPreviewGenerator(2), nil, usecase.Instrumentation{})
	submit := usecase.NewSubmitUseCase(registry, simulated.New(0, nil), storage, nil, memory.NewSubmissionLog(), time.Second, usecase.Instrumentation{})
	return NewRouter(cfg, intake, submit, submit).Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res, decodeBody(t, res)
}

func upload(t *testing.T, handler http.Handler, path string, parts ...uploadPart) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, p := range parts {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="files"; filename="`+p.filename+`"`)
		header.Set("Content-Type", p.contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("CreatePart() error = %v", err)
		}
		if _, err := part.Write(p.content); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res, decodeBody(t, res)
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	if res.Body.Len() == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
	return out
}

func createForm(t *testing.T, handler http.Handler) string {
	t.Helper()
	res, body := doJSON(t, handler, http.MethodPost, "/v1/forms")
	if res.Code != http.StatusCreated {
		t.Fatalf("create form expected 201, got %d", res.Code)
	}
	return body["id"].(string)
}

func TestHealthzEndpoint(t *testing.T) {
	handler := NewRouter(config.Config{}, nil, nil, nil, WithHealthDetails(func() any {
		return map[string]string{"transfer.submit": "closed"}
	})).Handler()

	res, body := doJSON(t, handler, http.MethodGet, "/healthz")
	if res.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected healthz response %d %+v", res.Code, body)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestFormLifecycle(t *testing.T) {
	handler := newFormsHandler(t, config.Config{})
	formID := createForm(t, handler)
	base := "/v1/forms/" + formID

	res, body := upload(t, handler, base+"/slots/identity/files",
		uploadPart{"passport.pdf", "application/pdf", []byte("%PDF-1.7")},
	)
	if res.Code != http.StatusCreated {
		t.Fatalf("upload expected 201, got %d: %s", res.Code, res.Body.String())
	}
	notice := body["notice"].(map[string]any)
	if notice["title"] != "File added" {
		t.Fatalf("unexpected notice %+v", notice)
	}

	upload(t, handler, base+"/slots/registration/files", uploadPart{"registration.pdf", "application/pdf", []byte("%PDF-1.7")})
	res, body = upload(t, handler, base+"/slots/logo/files", uploadPart{"logo.png", "image/png", pngBytes})
	if res.Code != http.StatusCreated {
		t.Fatalf("logo upload expected 201, got %d", res.Code)
	}
	files := body["files"].([]any)
	if preview, _ := files[0].(map[string]any)["preview"].(string); !strings.HasPrefix(preview, "data:image/png;base64,") {
		t.Fatalf("expected png preview, got %q", preview)
	}

	res, body = doJSON(t, handler, http.MethodPost, base+"/submit")
	if res.Code != http.StatusUnprocessableEntity || body["kind"] != "validation_incomplete" {
		t.Fatalf("incomplete submit expected 422, got %d %+v", res.Code, body)
	}

	res, body = upload(t, handler, base+"/slots/tax/files", uploadPart{"tax.pdf", "application/pdf", []byte("%PDF-1.7")})
	form := body["form"].(map[string]any)
	if res.Code != http.StatusCreated || form["completion_percentage"].(float64) != 100 || form["can_submit"] != true {
		t.Fatalf("expected a complete form, got %d %+v", res.Code, form)
	}

	res, body = doJSON(t, handler, http.MethodPost, base+"/submit")
	if res.Code != http.StatusOK {
		t.Fatalf("submit expected 200, got %d: %s", res.Code, res.Body.String())
	}
	form = body["form"].(map[string]any)
	if form["completion_percentage"].(float64) != 0 {
		t.Fatalf("expected reset after submit, got %+v", form)
	}

	res, body = doJSON(t, handler, http.MethodGet, base+"/submissions")
	if res.Code != http.StatusOK {
		t.Fatalf("submissions expected 200, got %d", res.Code)
	}
	if got := len(body["submissions"].([]any)); got != 2 {
		t.Fatalf("expected rejected and succeeded records, got %d", got)
	}

	res, _ = doJSON(t, handler, http.MethodDelete, base)
	if res.Code != http.StatusNoContent {
		t.Fatalf("delete expected 204, got %d", res.Code)
	}
	res, _ = doJSON(t, handler, http.MethodGet, base)
	if res.Code != http.StatusNotFound {
		t.Fatalf("deleted form expected 404, got %d", res.Code)
	}
}

func TestUploadRejectsWholeBatchWithIssues(t *testing.T) {
	handler := newFormsHandler(t, config.Config{})
	formID := createForm(t, handler)

	res, body := upload(t, handler, "/v1/forms/"+formID+"/slots/identity/files",
		uploadPart{"front.pdf", "application/pdf", []byte("%PDF-1.7")},
		uploadPart{"back.gif", "image/gif", []byte("GIF89a")},
	)
	if res.Code != http.StatusBadRequest || body["kind"] != "unsupported_type" {
		t.Fatalf("expected 400 unsupported_type, got %d %+v", res.Code, body)
	}
	issues := body["issues"].([]any)
	if len(issues) != 1 || issues[0].(map[string]any)["filename"] != "back.gif" {
		t.Fatalf("unexpected issues %+v", issues)
	}
	if body["notice"].(map[string]any)["severity"] != "error" {
		t.Fatalf("expected error notice, got %+v", body["notice"])
	}

	res, body = doJSON(t, handler, http.MethodGet, "/v1/forms/"+formID)
	slots := body["slots"].([]any)
	if files := slots[0].(map[string]any)["files"].([]any); len(files) != 0 {
		t.Fatalf("expected no partial admission, got %d files", len(files))
	}
}

func TestUploadCapacityConflict(t *testing.T) {
	handler := newFormsHandler(t, config.Config{})
	formID := createForm(t, handler)
	path := "/v1/forms/" + formID + "/slots/tax/files"

	if res, _ := upload(t, handler, path, uploadPart{"tax.pdf", "application/pdf", []byte("%PDF")}); res.Code != http.StatusCreated {
		t.Fatalf("first upload expected 201, got %d", res.Code)
	}
	res, body := upload(t, handler, path, uploadPart{"tax-2.pdf", "application/pdf", []byte("%PDF")})
	if res.Code != http.StatusConflict || body["kind"] != "capacity_exceeded" {
		t.Fatalf("expected 409 capacity_exceeded, got %d %+v", res.Code, body)
	}
}

func TestUploadBodyLimit(t *testing.T) {
	handler := newFormsHandler(t, config.Config{MaxUploadBytes: 512})
	formID := createForm(t, handler)

	res, body := upload(t, handler, "/v1/forms/"+formID+"/slots/tax/files",
		uploadPart{"tax.pdf", "application/pdf", bytes.Repeat([]byte("a"), 4096)},
	)
	if res.Code != http.StatusRequestEntityTooLarge || body["kind"] != "oversized_file" {
		t.Fatalf("expected 413, got %d %+v", res.Code, body)
	}
	notice, ok := body["notice"].(map[string]any)
	message, _ := notice["message"].(string)
	if !ok || notice["title"] != "Invalid file" || message == "" {
		t.Fatalf("expected oversized notice, got %+v", body["notice"])
	}
}

func TestUploadMissingMultipartField(t *testing.T) {
	handler := newFormsHandler(t, config.Config{})
	formID := createForm(t, handler)

	req := httptest.NewRequest(http.MethodPost, "/v1/forms/"+formID+"/slots/tax/files", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadUnknownSlot(t *testing.T) {
	handler := newFormsHandler(t, config.Config{})
	formID := createForm(t, handler)

	res, body := upload(t, handler, "/v1/forms/"+formID+"/slots/passport/files", uploadPart{"a.pdf", "application/pdf", []byte("%PDF")})
	if res.Code != http.StatusNotFound || body["kind"] != "unknown_slot" {
		t.Fatalf("expected 404 unknown_slot, got %d %+v", res.Code, body)
	}
}

func TestRemoveFile(t *testing.T) {
	handler := newFormsHandler(t, config.Config{})
	formID := createForm(t, handler)
	base := "/v1/forms/" + formID + "/slots/identity/files"

	_, body := upload(t, handler, base, uploadPart{"id.pdf", "application/pdf", []byte("%PDF")})
	fileID := body["files"].([]any)[0].(map[string]any)["id"].(string)

	res, body := doJSON(t, handler, http.MethodDelete, base+"/"+fileID)
	if res.Code != http.StatusOK {
		t.Fatalf("remove expected 200, got %d", res.Code)
	}
	slots := body["slots"].([]any)
	if files := slots[0].(map[string]any)["files"].([]any); len(files) != 0 {
		t.Fatalf("expected empty slot after remove, got %d", len(files))
	}

	if res, _ := doJSON(t, handler, http.MethodDelete, base+"/unknown-id"); res.Code != http.StatusOK {
		t.Fatalf("removing an unknown id must be a no-op, got %d", res.Code)
	}
}

func TestSnapshotMatchesCatalog(t *testing.T) {
	handler := newFormsHandler(t, config.Config{})
	formID := createForm(t, handler)

	_, body := doJSON(t, handler, http.MethodGet, "/v1/forms/"+formID)
	slots := body["slots"].([]any)
	if len(slots) != len(config.DefaultCatalog()) {
		t.Fatalf("expected %d slots, got %d", len(config.DefaultCatalog()), len(slots))
	}
	logo := slots[3].(map[string]any)
	if logo["name"] != string(domain.SlotLogo) || logo["required"] != false {
		t.Fatalf("unexpected logo slot %+v", logo)
	}
	if logo["max_file_size_label"] != "10 MiB" {
		t.Fatalf("unexpected size label %v", logo["max_file_size_label"])
	}
}
