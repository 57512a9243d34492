package workflows

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/agentbus-ledger/internal/domain/message"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// decodePayload copies a message payload into out and validates it
func decodePayload(payload map[string]any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return message.NewHandlerError(message.ErrorKindValidation, fmt.Errorf("payload is not encodable: %w", err))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return message.NewHandlerError(message.ErrorKindValidation, fmt.Errorf("invalid payload: %w", err))
	}
	if err := validate.Struct(out); err != nil {
		return message.NewHandlerError(message.ErrorKindValidation, fmt.Errorf("invalid payload: %s", describe(err)))
	}
	return nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// parseDate accepts a calendar date or an RFC 3339 timestamp; empty means now
func parseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, message.NewHandlerError(message.ErrorKindValidation, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s))
	}
	return t, nil
}
