package uploader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nkoval/form-autofill/internal/core/domain"
)

func testCoordinator(baseURL string) *Coordinator {
	return New(Options{
		BaseURL: baseURL,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestValidateFileRequiresNameAndSize(t *testing.T) {
	cases := []struct {
		name string
		req  domain.UploadRequest
	}{
		{"missing name", domain.UploadRequest{FileSize: 10, FileType: "application/pdf"}},
		{"missing size", domain.UploadRequest{FileName: "doc.pdf", FileType: "application/pdf"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFile(tc.req)
			if !domain.IsKind(err, domain.ErrInvalidFile) {
				t.Fatalf("expected invalid file error, got %v", err)
			}
		})
	}
}

func TestVerifyPDFRejectsGarbageBytes(t *testing.T) {
	err := VerifyPDF([]byte("this is not a pdf document"))
	if !domain.IsKind(err, domain.ErrInvalidFile) {
		t.Fatalf("expected invalid file error, got %v", err)
	}
}

func TestRequestCredentialsDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/uploads" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{
			"type": "success",
			"uploadId": "u-1",
			"file": {"s3PostRequest": {
				"key": "u-1_doc.pdf",
				"policy": "cG9saWN5",
				"xAmzAlgorithm": "AWS4-HMAC-SHA256",
				"xAmzCredential": "cred",
				"xAmzDate": "20260829T000000Z",
				"xAmzSignature": "sig",
				"sessionToken": "tok",
				"uploadUrl": "https://bucket.example/upload"
			}}
		}`))
	}))
	defer srv.Close()

	id, creds, err := testCoordinator(srv.URL).RequestCredentials(context.Background(),
		domain.UploadRequest{FileName: "doc.pdf", FileSize: 42, FileType: "application/pdf"})
	if err != nil {
		t.Fatalf("RequestCredentials: %v", err)
	}
	if id != "u-1" {
		t.Fatalf("unexpected upload id %q", id)
	}
	if creds.Key != "u-1_doc.pdf" || creds.UploadURL != "https://bucket.example/upload" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}
	if creds.SessionToken != "tok" || creds.XAmzSignature != "sig" {
		t.Fatalf("signed fields not mapped: %+v", creds)
	}
}

func TestRequestCredentialsNonSuccessAbortsSetup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"type":"error","error":{"message":"storage unavailable"}}`))
	}))
	defer srv.Close()

	_, _, err := testCoordinator(srv.URL).RequestCredentials(context.Background(),
		domain.UploadRequest{FileName: "doc.pdf", FileSize: 42, FileType: "application/pdf"})
	if !domain.IsKind(err, domain.ErrUploadSetup) {
		t.Fatalf("expected upload setup error, got %v", err)
	}
}

func TestTransportPostsSignedFieldsAndFile(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart form: %v", err)
		}
		for field, want := range map[string]string{
			"key":                  "u-1_doc.pdf",
			"policy":               "cG9saWN5",
			"x-amz-algorithm":      "AWS4-HMAC-SHA256",
			"x-amz-security-token": "tok",
		} {
			if got := r.FormValue(field); got != want {
				t.Errorf("field %s = %q, want %q", field, got, want)
			}
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "doc.pdf" {
			t.Errorf("unexpected file name %q", header.Filename)
		}
		body, _ := io.ReadAll(file)
		if string(body) != "%PDF-bytes" {
			t.Errorf("unexpected file body %q", body)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	creds := domain.UploadCredentials{
		Key:           "u-1_doc.pdf",
		Policy:        "cG9saWN5",
		XAmzAlgorithm: "AWS4-HMAC-SHA256",
		SessionToken:  "tok",
		UploadURL:     srv.URL,
	}
	err := testCoordinator("http://unused").Transport(context.Background(), creds, "doc.pdf", []byte("%PDF-bytes"))
	if err != nil {
		t.Fatalf("Transport: %v", err)
	}
	if requests != 1 {
		t.Fatalf("expected a single storage request, got %d", requests)
	}
}

func TestTransportFailureIsNotRetried(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "access denied", http.StatusForbidden)
	}))
	defer srv.Close()

	creds := domain.UploadCredentials{Key: "k", UploadURL: srv.URL}
	err := testCoordinator("http://unused").Transport(context.Background(), creds, "doc.pdf", []byte("%PDF-bytes"))

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if terr.Name != "storage_rejected" || terr.File != "doc.pdf" {
		t.Fatalf("unexpected diagnostics: %+v", terr)
	}
	if requests != 1 {
		t.Fatalf("expected a single storage request, got %d", requests)
	}
}

func TestCompleteUploadSignalsWorkflow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/uploads/u-1/events/uploaded" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := testCoordinator(srv.URL).CompleteUpload(context.Background(), "u-1"); err != nil {
		t.Fatalf("CompleteUpload: %v", err)
	}
}
