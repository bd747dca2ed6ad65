package ports

import (
	"context"

	"github.com/nkoval/form-autofill/internal/core/domain"
)

// SessionRepository persists upload sessions and enforces workflow-state
// preconditions on every transition.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.UploadSession) error
	GetByID(ctx context.Context, id string) (*domain.UploadSession, error)
	// AdvanceState moves a session from one state to its successor. It fails
	// with ErrStateConflict when the session is not currently in from.
	AdvanceState(ctx context.Context, id string, from, to domain.WorkflowState) error
	// SaveSuggestions stores a suggestion set and advances the session to
	// suggestions_received in the same statement.
	SaveSuggestions(ctx context.Context, id string, set domain.SuggestionSet) error
	UpdateForm(ctx context.Context, id string, form domain.FormValues) error
	MarkSubmitted(ctx context.Context, id string, form domain.FormValues) error
	// RecordFailure stores a failure message without touching the state.
	RecordFailure(ctx context.Context, id string, message string) error
}

// CredentialIssuer obtains per-upload storage credentials from the file
// storage service.
type CredentialIssuer interface {
	Issue(ctx context.Context, storageKey string, req domain.UploadRequest) (*domain.UploadCredentials, error)
}

// EventQueue carries text-extraction notifications between the API and the
// suggestion worker.
type EventQueue interface {
	PublishTextExtracted(ctx context.Context, event domain.TextExtractedEvent) error
	SubscribeTextExtracted(ctx context.Context, handler func(context.Context, domain.TextExtractedEvent) error) error
}

// SuggestionClient issues exactly one structured-completion request per call.
type SuggestionClient interface {
	Suggest(ctx context.Context, textContent string) (domain.SuggestionSet, error)
}
