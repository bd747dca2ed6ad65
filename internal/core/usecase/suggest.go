package usecase

import (
	"context"
	"fmt"

	"github.com/nkoval/form-autofill/internal/core/domain"
	"github.com/nkoval/form-autofill/internal/core/ports"
)

// RetrieveSuggestionsUseCase runs the suggestion stage for one extraction
// event: exactly one structured-completion request, no retry. On failure the
// session stays in getting_suggestions with the failure message recorded.
type RetrieveSuggestionsUseCase struct {
	repo   ports.SessionRepository
	client ports.SuggestionClient
}

func NewRetrieveSuggestionsUseCase(
	repo ports.SessionRepository,
	client ports.SuggestionClient,
) *RetrieveSuggestionsUseCase {
	return &RetrieveSuggestionsUseCase{repo: repo, client: client}
}

func (uc *RetrieveSuggestionsUseCase) ProcessEvent(ctx context.Context, event domain.TextExtractedEvent) error {
	session, err := uc.repo.GetByID(ctx, event.UploadID)
	if err != nil {
		return fmt.Errorf("fetch session for suggestions: %w", err)
	}
	if session.State != domain.StateGettingSuggestions {
		return domain.WrapError(domain.ErrStateConflict, "process suggestions",
			fmt.Errorf("session %s is in state %s", session.ID, session.State))
	}

	set, err := uc.client.Suggest(ctx, event.TextContent)
	if err != nil {
		wrapped := domain.WrapError(domain.ErrSuggestionRequest, "retrieve suggestions", err)
		if recordErr := uc.repo.RecordFailure(ctx, session.ID, wrapped.Error()); recordErr != nil {
			return fmt.Errorf("%w; record failure: %v", wrapped, recordErr)
		}
		return wrapped
	}

	if err := uc.repo.SaveSuggestions(ctx, session.ID, set); err != nil {
		return fmt.Errorf("save suggestions: %w", err)
	}
	return nil
}
