package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/nkoval/form-autofill/internal/config"
	"github.com/nkoval/form-autofill/internal/core/domain"
	"github.com/nkoval/form-autofill/internal/core/ports"
	"github.com/nkoval/form-autofill/internal/observability/metrics"
)

type Router struct {
	cfg     config.Config
	uploads ports.UploadCreator
	events  ports.UploadEventHandler
	form    ports.FormService
	reader  ports.SessionReader
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	uploads ports.UploadCreator,
	events ports.UploadEventHandler,
	form ports.FormService,
	reader ports.SessionReader,
) *Router {
	return &Router{
		cfg:     cfg,
		uploads: uploads,
		events:  events,
		form:    form,
		reader:  reader,
	}
}

// WithMetrics attaches a metrics registry; without it the router serves no
// /metrics endpoint and records nothing.
func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/uploads", rt.createUpload)
	mux.HandleFunc("GET /v1/uploads/{id}", rt.getUpload)
	mux.HandleFunc("POST /v1/uploads/{id}/events/uploaded", rt.fileUploaded)
	mux.HandleFunc("POST /v1/uploads/{id}/events/text", rt.textExtracted)
	mux.HandleFunc("POST /v1/uploads/{id}/form", rt.applyFormField)
	mux.HandleFunc("POST /v1/uploads/{id}/submission", rt.submitForm)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware("api", handler)
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	}
	if rt.cfg.APIMaxConns > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxConns, time.Second)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) createUpload(w http.ResponseWriter, r *http.Request) {
	var req domain.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	session, creds, err := rt.uploads.CreateUpload(r.Context(), req)
	if err != nil {
		if rt.metrics != nil && domain.IsKind(err, domain.ErrUploadSetup) {
			rt.metrics.RecordUploadSetupFailure("api", "credential_request")
		}
		writeEnvelopeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordUploadCreated("api")
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"type":     "success",
		"uploadId": session.ID,
		"file": map[string]any{
			"s3PostRequest": creds,
		},
	})
}

func (rt *Router) getUpload(w http.ResponseWriter, r *http.Request) {
	session, err := rt.reader.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session))
}

func (rt *Router) fileUploaded(w http.ResponseWriter, r *http.Request) {
	if err := rt.events.MarkUploaded(r.Context(), r.PathValue("id")); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) textExtracted(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.WebhookToken != "" &&
		!isAuthorizedBearerHeader(r.Header.Get("Authorization"), rt.cfg.WebhookToken) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req struct {
		TextContent string `json:"textContent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	err := rt.events.HandleExtractedText(r.Context(), r.PathValue("id"), req.TextContent)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordExtractionEvent("api", "rejected")
		}
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordExtractionEvent("api", "accepted")
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (rt *Router) applyFormField(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Field) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "field is required"})
		return
	}

	session, err := rt.form.ApplyField(r.Context(), r.PathValue("id"), req.Field, req.Value)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"form": session.Form})
}

func (rt *Router) submitForm(w http.ResponseWriter, r *http.Request) {
	var values domain.FormValues
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.form.Submit(r.Context(), r.PathValue("id"), values)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordSubmission("api", result.Submitted)
	}

	status := http.StatusOK
	if !result.Submitted {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

// sessionView is the read-model projection served to clients polling the
// workflow.
func sessionView(session *domain.UploadSession) map[string]any {
	view := map[string]any{
		"uploadId":   session.ID,
		"fileName":   session.FileName,
		"state":      session.State,
		"statusLine": session.State.StatusLine(),
		"form":       session.Form,
		"submitted":  session.Submitted,
	}
	if session.Suggestions != nil {
		view["suggestions"] = session.Suggestions
	}
	return view
}

func isAuthorizedBearerHeader(headerValue, expectedToken string) bool {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" || expectedToken == "" {
		return false
	}
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(headerValue, bearerPrefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(headerValue, bearerPrefix))
	return token == expectedToken
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeEnvelopeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"type":  "error",
		"error": map[string]string{"message": message},
	})
}
