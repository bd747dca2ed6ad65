// Package uploader drives one file through the upload pipeline: it asks the
// API for single-use storage credentials, posts the file bytes directly to
// storage, and then reports the upload back so text extraction can start.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/nkoval/form-autofill/internal/core/domain"
)

// TransportError carries the diagnostics of a failed storage POST. It is
// logged in full; the workflow session is left untouched so the same upload
// can be re-initiated by hand.
type TransportError struct {
	Name    string
	Message string
	Details string
	File    string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// credentialEnvelope is the wire shape of the credential endpoint response.
type credentialEnvelope struct {
	Type     string `json:"type"`
	UploadID string `json:"uploadId"`
	File     struct {
		S3PostRequest domain.UploadCredentials `json:"s3PostRequest"`
	} `json:"file"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Coordinator owns exactly one upload at a time. It holds no state between
// Upload calls; credentials live only for the duration of a single transport.
type Coordinator struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func New(opts Options) *Coordinator {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{baseURL: opts.BaseURL, client: client, logger: logger}
}

// Upload runs the full pipeline for one file: validate, request credentials,
// transport the bytes, signal completion. It returns the upload session id.
func (c *Coordinator) Upload(ctx context.Context, fileName string, content []byte) (string, error) {
	req := domain.UploadRequest{
		FileName: filepath.Base(fileName),
		FileSize: int64(len(content)),
		FileType: "application/pdf",
	}
	if err := ValidateFile(req); err != nil {
		return "", err
	}
	if err := VerifyPDF(content); err != nil {
		return "", err
	}

	uploadID, creds, err := c.RequestCredentials(ctx, req)
	if err != nil {
		return "", err
	}

	if err := c.Transport(ctx, creds, req.FileName, content); err != nil {
		return uploadID, err
	}

	if err := c.CompleteUpload(ctx, uploadID); err != nil {
		return uploadID, err
	}
	return uploadID, nil
}

// ValidateFile rejects a selection before any network call is made.
func ValidateFile(req domain.UploadRequest) error {
	if req.FileName == "" || req.FileName == "." {
		return domain.WrapError(domain.ErrInvalidFile, "uploader.validate",
			fmt.Errorf("file name is missing"))
	}
	if req.FileSize <= 0 {
		return domain.WrapError(domain.ErrInvalidFile, "uploader.validate",
			fmt.Errorf("file size is missing"))
	}
	return nil
}

// RequestCredentials asks the API for single-use storage credentials. Any
// non-success answer aborts the transport for this file.
func (c *Coordinator) RequestCredentials(ctx context.Context, req domain.UploadRequest) (string, domain.UploadCredentials, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", domain.UploadCredentials{}, fmt.Errorf("encode credential request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/uploads", bytes.NewReader(body))
	if err != nil {
		return "", domain.UploadCredentials{}, fmt.Errorf("build credential request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", domain.UploadCredentials{}, domain.WrapError(domain.ErrUploadSetup,
			"uploader.credentials", err)
	}
	defer resp.Body.Close()

	var envelope credentialEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", domain.UploadCredentials{}, domain.WrapError(domain.ErrUploadSetup,
			"uploader.credentials", fmt.Errorf("decode response: %w", err))
	}
	if resp.StatusCode != http.StatusCreated || envelope.Type != "success" {
		msg := envelope.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		return "", domain.UploadCredentials{}, domain.WrapError(domain.ErrUploadSetup,
			"uploader.credentials", fmt.Errorf("credential request failed: %s", msg))
	}
	return envelope.UploadID, envelope.File.S3PostRequest, nil
}

// Transport posts the file to storage using the signed policy fields. The
// request is attempted exactly once.
func (c *Coordinator) Transport(ctx context.Context, creds domain.UploadCredentials, fileName string, content []byte) error {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	fields := map[string]string{
		"key":                  creds.Key,
		"policy":               creds.Policy,
		"x-amz-algorithm":      creds.XAmzAlgorithm,
		"x-amz-credential":     creds.XAmzCredential,
		"x-amz-date":           creds.XAmzDate,
		"x-amz-signature":      creds.XAmzSignature,
		"x-amz-security-token": creds.SessionToken,
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := form.WriteField(name, value); err != nil {
			return c.transportFailed(fileName, "encode_error", err)
		}
	}

	part, err := form.CreateFormFile("file", fileName)
	if err != nil {
		return c.transportFailed(fileName, "encode_error", err)
	}
	if _, err := part.Write(content); err != nil {
		return c.transportFailed(fileName, "encode_error", err)
	}
	if err := form.Close(); err != nil {
		return c.transportFailed(fileName, "encode_error", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, creds.UploadURL, &buf)
	if err != nil {
		return c.transportFailed(fileName, "request_error", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return c.transportFailed(fileName, "network_error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return c.transportFailed(fileName, "storage_rejected",
			fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(detail)))
	}
	return nil
}

// CompleteUpload tells the API the bytes are in storage so the workflow can
// leave waiting_for_file.
func (c *Coordinator) CompleteUpload(ctx context.Context, uploadID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v1/uploads/%s/events/uploaded", c.baseURL, uploadID), nil)
	if err != nil {
		return fmt.Errorf("build completion request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("signal upload completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("signal upload completion: %s", resp.Status)
	}
	return nil
}

func (c *Coordinator) transportFailed(fileName, name string, cause error) error {
	terr := &TransportError{
		Name:    name,
		Message: cause.Error(),
		Details: fmt.Sprintf("upload transport for %s", fileName),
		File:    fileName,
	}
	c.logger.Error("upload_transport_failed",
		"error_name", terr.Name,
		"error_message", terr.Message,
		"details", terr.Details,
		"file", terr.File,
	)
	return terr
}
