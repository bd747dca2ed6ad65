package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nkoval/form-autofill/internal/config"
	"github.com/nkoval/form-autofill/internal/core/domain"
)

func TestFileUploadedAdvancesSession(t *testing.T) {
	events := &eventsFake{}
	handler := newUploadHandler(config.Config{}, nil, events, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads/u-1/events/uploaded", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if events.uploadedID != "u-1" {
		t.Fatalf("expected upload id u-1, got %q", events.uploadedID)
	}
}

func TestFileUploadedMapsStateConflictTo409(t *testing.T) {
	events := &eventsFake{
		uploadedErr: domain.WrapError(domain.ErrStateConflict, "advance", errors.New("already past waiting_for_file")),
	}
	handler := newUploadHandler(config.Config{}, nil, events, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads/u-1/events/uploaded", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}

func TestTextExtractedPassesContentThrough(t *testing.T) {
	events := &eventsFake{}
	handler := newUploadHandler(config.Config{}, nil, events, nil, nil)

	res := postJSON(t, handler, "/v1/uploads/u-1/events/text",
		map[string]string{"textContent": "Acme Corp, acme@co.com, 1 Main St"})
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if events.textID != "u-1" || events.text != "Acme Corp, acme@co.com, 1 Main St" {
		t.Fatalf("event not forwarded: id=%q text=%q", events.textID, events.text)
	}
}

func TestTextExtractedRequiresWebhookToken(t *testing.T) {
	events := &eventsFake{}
	handler := newUploadHandler(config.Config{WebhookToken: "secret"}, nil, events, nil, nil)

	payload, _ := json.Marshal(map[string]string{"textContent": "text"})

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads/u-1/events/text", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res.Code)
	}
	if events.textID != "" {
		t.Fatal("handler must not run without authorization")
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/uploads/u-1/events/text", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer secret")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202 with token, got %d", res.Code)
	}
}

func TestTextExtractedMapsEmptyTextTo400(t *testing.T) {
	events := &eventsFake{
		textErr: domain.WrapError(domain.ErrInvalidInput, "text", errors.New("text content is empty")),
	}
	handler := newUploadHandler(config.Config{}, nil, events, nil, nil)

	res := postJSON(t, handler, "/v1/uploads/u-1/events/text", map[string]string{"textContent": ""})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
