package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nkoval/form-autofill/internal/core/domain"
	"github.com/nkoval/form-autofill/internal/core/ports"
)

// WorkflowEventsUseCase advances the state machine on the two external
// completion signals: transport finished and text content available. Every
// transition is guarded by the current-state precondition in the repository,
// so out-of-order or duplicate signals fail with ErrStateConflict instead of
// skipping a stage.
type WorkflowEventsUseCase struct {
	repo  ports.SessionRepository
	queue ports.EventQueue
}

func NewWorkflowEventsUseCase(repo ports.SessionRepository, queue ports.EventQueue) *WorkflowEventsUseCase {
	return &WorkflowEventsUseCase{repo: repo, queue: queue}
}

// MarkUploaded records that the storage transport completed for this session.
func (uc *WorkflowEventsUseCase) MarkUploaded(ctx context.Context, uploadID string) error {
	err := uc.repo.AdvanceState(ctx, uploadID,
		domain.StateWaitingForFile, domain.StateGettingFileTextContent)
	if err != nil {
		return fmt.Errorf("mark uploaded: %w", err)
	}
	return nil
}

// HandleExtractedText accepts the push notification from the external text
// extractor, advances the session to getting_suggestions and hands the text
// to the suggestion worker via the queue.
func (uc *WorkflowEventsUseCase) HandleExtractedText(ctx context.Context, uploadID, textContent string) error {
	if strings.TrimSpace(textContent) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "handle extracted text",
			errors.New("text content is empty"))
	}

	err := uc.repo.AdvanceState(ctx, uploadID,
		domain.StateGettingFileTextContent, domain.StateGettingSuggestions)
	if err != nil {
		return fmt.Errorf("advance to getting_suggestions: %w", err)
	}

	event := domain.TextExtractedEvent{
		UploadID:    uploadID,
		TextContent: textContent,
	}
	if err := uc.queue.PublishTextExtracted(ctx, event); err != nil {
		return fmt.Errorf("publish text extracted event: %w", err)
	}
	return nil
}
