package usecase

import (
	"context"
	"fmt"

	"github.com/nkoval/form-autofill/internal/core/domain"
	"github.com/nkoval/form-autofill/internal/core/ports"
)

// FormUseCase owns the form binding: suggestion picks overwrite one field,
// submit validates presence and sets the submitted flag. Submission is local,
// it never leaves the service.
type FormUseCase struct {
	repo ports.SessionRepository
}

func NewFormUseCase(repo ports.SessionRepository) *FormUseCase {
	return &FormUseCase{repo: repo}
}

// ApplyField overwrites a single form field with the given value, as a
// suggestion-chip pick or a manual edit does.
func (uc *FormUseCase) ApplyField(ctx context.Context, uploadID, field, value string) (*domain.UploadSession, error) {
	session, err := uc.repo.GetByID(ctx, uploadID)
	if err != nil {
		return nil, fmt.Errorf("fetch session for field update: %w", err)
	}

	form := session.Form
	if err := form.Set(field, value); err != nil {
		return nil, err
	}

	if err := uc.repo.UpdateForm(ctx, session.ID, form); err != nil {
		return nil, fmt.Errorf("update form values: %w", err)
	}
	session.Form = form
	return session, nil
}

// Submit validates the provided values and, when all three fields are
// present, persists them with the submitted flag set. Invalid submissions
// return field-level errors and leave the flag untouched.
func (uc *FormUseCase) Submit(ctx context.Context, uploadID string, values domain.FormValues) (*ports.SubmitResult, error) {
	if _, err := uc.repo.GetByID(ctx, uploadID); err != nil {
		return nil, fmt.Errorf("fetch session for submit: %w", err)
	}

	if fieldErrors := values.Validate(); len(fieldErrors) > 0 {
		return &ports.SubmitResult{Submitted: false, FieldErrors: fieldErrors}, nil
	}

	if err := uc.repo.MarkSubmitted(ctx, uploadID, values); err != nil {
		return nil, fmt.Errorf("mark submitted: %w", err)
	}
	return &ports.SubmitResult{Submitted: true}, nil
}
