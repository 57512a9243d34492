package service

import (
	"errors"

	"github.com/agentbus-ledger/internal/domain/account"
	"github.com/agentbus-ledger/internal/domain/journal"
	"github.com/agentbus-ledger/internal/domain/message"
)

// Classify maps a ledger error to the kind reported to bus callers and HTTP clients
func Classify(err error) message.ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, journal.ValidationError{}),
		errors.Is(err, account.ErrUnknownAccountType{}),
		errors.Is(err, account.ErrEmptyName):
		return message.ErrorKindValidation
	case errors.Is(err, journal.StateError{}),
		errors.Is(err, account.ErrRangeExhausted{}):
		return message.ErrorKindState
	case errors.Is(err, journal.NotFoundError{}):
		return message.ErrorKindNotFound
	case errors.Is(err, journal.ErrConcurrentModification{}),
		errors.Is(err, account.ErrDuplicateCode{}):
		return message.ErrorKindConflict
	default:
		return message.ErrorKindStore
	}
}

// MissingAccounts returns the unresolved references carried by err, if any
func MissingAccounts(err error) []string {
	var ve journal.ValidationError
	if errors.As(err, &ve) {
		return ve.MissingAccounts
	}
	return nil
}
