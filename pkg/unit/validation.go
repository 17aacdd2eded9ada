package unit

import (
	"fmt"

	"github.com/core-tools/hsu-keeper/pkg/errors"
)

// ValidateID validates unit ID format and constraints
func ValidateID(id string) error {
	if id == "" {
		return errors.NewValidationError("unit ID cannot be empty", nil)
	}

	if len(id) > 64 {
		return errors.NewValidationError("unit ID cannot exceed 64 characters", nil)
	}

	for _, char := range id {
		if !isValidIDChar(char) {
			return errors.NewValidationError("unit ID contains invalid characters: only letters, numbers, dots, hyphens, and underscores are allowed", nil).
				WithContext("unit", id)
		}
	}

	return nil
}

// ValidateDescriptor checks that the descriptor is a well-formed variant.
func ValidateDescriptor(d Descriptor) error {
	if err := ValidateID(d.ID); err != nil {
		return err
	}

	switch d.Kind {
	case KindProcess:
		if d.Process == nil {
			return errors.NewValidationError("process spec is required for process unit", nil).WithContext("unit", d.ID)
		}
		if d.Service != nil {
			return errors.NewValidationError("only process spec should be specified for process unit", nil).WithContext("unit", d.ID)
		}
		if d.Process.Program == "" {
			return errors.NewValidationError("program is required", nil).WithContext("unit", d.ID)
		}
	case KindService:
		if d.Service == nil {
			return errors.NewValidationError("service spec is required for service unit", nil).WithContext("unit", d.ID)
		}
		if d.Process != nil {
			return errors.NewValidationError("only service spec should be specified for service unit", nil).WithContext("unit", d.ID)
		}
		if d.Service.Name == "" {
			return errors.NewValidationError("service name is required", nil).WithContext("unit", d.ID)
		}
	default:
		return errors.NewValidationError(fmt.Sprintf("unsupported unit kind: %s", d.Kind), nil).
			WithContext("unit", d.ID).
			WithContext("supported_kinds", "process, service")
	}

	b := d.Backoff
	if b.InitialDelay < 0 || b.MaxDelay < 0 {
		return errors.NewValidationError("backoff delays cannot be negative", nil).WithContext("unit", d.ID)
	}
	if b.Enabled() && b.BackoffRate != 0 && b.BackoffRate < 1 {
		return errors.NewValidationError(fmt.Sprintf("backoff rate must be at least 1: %f", b.BackoffRate), nil).WithContext("unit", d.ID)
	}
	if b.Enabled() && b.MaxDelay > 0 && b.MaxDelay < b.InitialDelay {
		return errors.NewValidationError("backoff max delay cannot be below initial delay", nil).WithContext("unit", d.ID)
	}

	return nil
}

func isValidIDChar(char rune) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9') ||
		char == '-' || char == '_' || char == '.'
}
