package usecase

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kirillkom/notescan/internal/core/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateDocumentID rejects anything that is not an upload-issued UUIDv4.
func validateDocumentID(operation, id string) error {
	if err := validate.Var(strings.TrimSpace(id), "required,uuid4"); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, operation, fmt.Errorf("malformed document id %q", id))
	}
	return nil
}
