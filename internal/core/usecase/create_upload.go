package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nkoval/form-autofill/internal/core/domain"
	"github.com/nkoval/form-autofill/internal/core/ports"
)

// AllowedFileType is the only MIME type accepted for upload.
const AllowedFileType = "application/pdf"

type CreateUploadUseCase struct {
	repo        ports.SessionRepository
	issuer      ports.CredentialIssuer
	maxFileSize int64
}

func NewCreateUploadUseCase(
	repo ports.SessionRepository,
	issuer ports.CredentialIssuer,
	maxFileSize int64,
) *CreateUploadUseCase {
	return &CreateUploadUseCase{
		repo:        repo,
		issuer:      issuer,
		maxFileSize: maxFileSize,
	}
}

// CreateUpload validates the file metadata, registers a session in
// waiting_for_file and obtains one-shot storage credentials. A credential
// failure aborts the upload attempt and leaves the session untouched in
// waiting_for_file.
func (uc *CreateUploadUseCase) CreateUpload(
	ctx context.Context,
	req domain.UploadRequest,
) (*domain.UploadSession, *domain.UploadCredentials, error) {
	if err := validateUploadRequest(req, uc.maxFileSize); err != nil {
		return nil, nil, err
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(req.FileName))
	now := time.Now().UTC()

	session := &domain.UploadSession{
		ID:         id,
		FileName:   req.FileName,
		FileSize:   req.FileSize,
		FileType:   req.FileType,
		StorageKey: storageKey,
		State:      domain.StateWaitingForFile,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.repo.Create(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("create upload session: %w", err)
	}

	creds, err := uc.issuer.Issue(ctx, storageKey, req)
	if err != nil {
		return nil, nil, domain.WrapError(domain.ErrUploadSetup, "issue upload credentials", err)
	}

	return session, creds, nil
}

func validateUploadRequest(req domain.UploadRequest, maxFileSize int64) error {
	if strings.TrimSpace(req.FileName) == "" {
		return domain.WrapError(domain.ErrInvalidFile, "validate upload", errors.New("file name is required"))
	}
	if req.FileSize <= 0 {
		return domain.WrapError(domain.ErrInvalidFile, "validate upload", errors.New("file size is required"))
	}
	if maxFileSize > 0 && req.FileSize > maxFileSize {
		return domain.WrapError(domain.ErrInvalidFile, "validate upload",
			fmt.Errorf("file size %d exceeds limit %d", req.FileSize, maxFileSize))
	}
	if req.FileType != AllowedFileType {
		return domain.WrapError(domain.ErrInvalidFile, "validate upload",
			fmt.Errorf("file type %q is not allowed", req.FileType))
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.pdf"
	}
	return base
}
