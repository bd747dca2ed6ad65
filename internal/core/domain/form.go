package domain

import "strings"

// Form field names, also used as JSON keys and validation error keys.
const (
	FieldCompanyName = "companyName"
	FieldEmail       = "email"
	FieldAddress     = "address"
)

// FormValues holds the three user-facing form fields. All are required
// strings; validation checks presence only, not format.
type FormValues struct {
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	Address     string `json:"address"`
}

// Set overwrites exactly one field by name. Unknown field names are rejected
// so a suggestion pick can never touch anything else.
func (f *FormValues) Set(field, value string) error {
	switch field {
	case FieldCompanyName:
		f.CompanyName = value
	case FieldEmail:
		f.Email = value
	case FieldAddress:
		f.Address = value
	default:
		return WrapError(ErrInvalidInput, "set form field", errInvalidField(field))
	}
	return nil
}

// Validate returns per-field error messages for every missing value. An empty
// map means the form is valid.
func (f FormValues) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(f.CompanyName) == "" {
		errs[FieldCompanyName] = "company name is required"
	}
	if strings.TrimSpace(f.Email) == "" {
		errs[FieldEmail] = "email is required"
	}
	if strings.TrimSpace(f.Address) == "" {
		errs[FieldAddress] = "address is required"
	}
	return errs
}
