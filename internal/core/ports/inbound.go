package ports

import (
	"context"

	"github.com/nkoval/form-autofill/internal/core/domain"
)

// UploadCreator is the inbound contract for starting a new upload session.
type UploadCreator interface {
	CreateUpload(ctx context.Context, req domain.UploadRequest) (*domain.UploadSession, *domain.UploadCredentials, error)
}

// UploadEventHandler receives the external completion signals that drive the
// workflow state machine forward.
type UploadEventHandler interface {
	MarkUploaded(ctx context.Context, uploadID string) error
	HandleExtractedText(ctx context.Context, uploadID, textContent string) error
}

// SuggestionProcessor is the inbound contract for the asynchronous suggestion
// retrieval stage.
type SuggestionProcessor interface {
	ProcessEvent(ctx context.Context, event domain.TextExtractedEvent) error
}

// FormService binds suggestion picks and submissions to a session's form.
type FormService interface {
	ApplyField(ctx context.Context, uploadID, field, value string) (*domain.UploadSession, error)
	Submit(ctx context.Context, uploadID string, values domain.FormValues) (*SubmitResult, error)
}

// SubmitResult reports the outcome of one submit attempt. FieldErrors is
// empty when Submitted is true.
type SubmitResult struct {
	Submitted   bool              `json:"submitted"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

// SessionReader is the read model for session state and suggestions.
type SessionReader interface {
	GetByID(ctx context.Context, id string) (*domain.UploadSession, error)
}
