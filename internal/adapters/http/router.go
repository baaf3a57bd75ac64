package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/justinas/alice"

	"github.com/kirillkom/document-intake/internal/config"
	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

type Router struct {
	cfg       config.Config
	intake    ports.FormIntake
	submitter ports.FormSubmitter
	history   ports.SubmissionHistory

	metrics       httpMetrics
	healthDetails func() any
}

type httpMetrics interface {
	Handler() http.Handler
	Middleware(service string, next http.Handler) http.Handler
}

type RouterOption func(*Router)

func WithMetrics(m httpMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

// WithHealthDetails adds extra fields to the /healthz body.
func WithHealthDetails(fn func() any) RouterOption {
	return func(rt *Router) {
		rt.healthDetails = fn
	}
}

func NewRouter(
	cfg config.Config,
	intake ports.FormIntake,
	submitter ports.FormSubmitter,
	history ports.SubmissionHistory,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:       cfg,
		intake:    intake,
		submitter: submitter,
		history:   history,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	api := alice.New(
		rateLimitMiddleware(rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst),
		func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, 2*time.Second)
		},
	)
	mux.Handle("POST /v1/forms", api.ThenFunc(rt.createForm))
	mux.Handle("GET /v1/forms/{formID}", api.ThenFunc(rt.getForm))
	mux.Handle("DELETE /v1/forms/{formID}", api.ThenFunc(rt.deleteForm))
	mux.Handle("POST /v1/forms/{formID}/slots/{slot}/files", api.ThenFunc(rt.addFiles))
	mux.Handle("DELETE /v1/forms/{formID}/slots/{slot}/files/{fileID}", api.ThenFunc(rt.removeFile))
	mux.Handle("POST /v1/forms/{formID}/submit", api.ThenFunc(rt.submitForm))
	mux.Handle("GET /v1/forms/{formID}/submissions", api.ThenFunc(rt.listSubmissions))

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("intake-api", handler)
	}
	return alice.New(requestIDMiddleware, accessLogMiddleware, recoverPanicMiddleware).Then(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if rt.healthDetails != nil {
		body["details"] = rt.healthDetails()
	}
	writeJSON(w, http.StatusOK, body)
}

type errorResponse struct {
	Error  string             `json:"error"`
	Kind   string             `json:"kind"`
	Notice *domain.Notice     `json:"notice,omitempty"`
	Issues []domain.FileIssue `json:"issues,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{
		Error:  err.Error(),
		Kind:   domain.KindCode(err),
		Issues: domain.IssuesFrom(err),
	}
	if notice, ok := domain.NoticeFrom(err); ok {
		resp.Notice = &notice
	}

	status := mapErrorToHTTPStatus(err)
	if status == http.StatusInternalServerError {
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

func isMaxBytesError(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
