package uploader

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/nkoval/form-autofill/internal/core/domain"
)

// VerifyPDF confirms the selected bytes open as a PDF document before any
// credentials are requested. Only PDF uploads are accepted.
func VerifyPDF(content []byte) error {
	if _, err := pdf.NewReader(bytes.NewReader(content), int64(len(content))); err != nil {
		return domain.WrapError(domain.ErrInvalidFile, "uploader.verify_pdf",
			fmt.Errorf("not a readable pdf: %w", err))
	}
	return nil
}
