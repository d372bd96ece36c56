package proto

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrUnknownType is returned for envelopes with an unrecognised type.
var ErrUnknownType = errors.New("unknown message type")

// Decode unmarshals raw into dst and validates it.
func Decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// ValidateText checks a chat message against the configured maximum length in runes.
func ValidateText(text string, maxLen int) error {
	if maxLen <= 0 {
		return nil
	}
	return validate.Var(text, fmt.Sprintf("max=%d", maxLen))
}
