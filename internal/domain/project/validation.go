package project

import (
	"fmt"
	"unicode"

	"github.com/forgeflow/forgeflow/internal/domain"
)

// ValidateCreateRequest validates the fields of a project creation request.
func ValidateCreateRequest(req CreateRequest) error {
	if req.Name == "" {
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if len(req.Name) > 255 {
		return fmt.Errorf("name exceeds 255 characters: %w", domain.ErrValidation)
	}
	for _, r := range req.Name {
		if unicode.IsControl(r) {
			return fmt.Errorf("name contains control characters: %w", domain.ErrValidation)
		}
	}
	if len(req.Description) > 2000 {
		return fmt.Errorf("description exceeds 2000 characters: %w", domain.ErrValidation)
	}
	if len(req.TechStack) > 100 {
		return fmt.Errorf("tech_stack exceeds 100 characters: %w", domain.ErrValidation)
	}
	return nil
}
