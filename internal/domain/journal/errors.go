package journal

import (
	"fmt"
	"strings"
)

// ValidationError reports input the caller can correct, such as an unbalanced
// journal or account references that did not resolve
type ValidationError struct {
	Message         string
	MissingAccounts []string
}

func (e ValidationError) Error() string {
	if len(e.MissingAccounts) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.MissingAccounts, ", "))
	}
	return e.Message
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	return ok
}

// StateError reports an operation attempted in the wrong journal state
type StateError struct {
	JournalID int64
	Reason    string
}

func (e StateError) Error() string {
	return fmt.Sprintf("journal #%d: %s", e.JournalID, e.Reason)
}

func (e StateError) Is(target error) bool {
	_, ok := target.(StateError)
	return ok
}

// NotFoundError indicates a missing journal
type NotFoundError struct {
	JournalID int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("journal not found: %d", e.JournalID)
}

func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	return ok
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	JournalID       int64
	ExpectedVersion int
	ActualVersion   int
}

func (e ErrConcurrentModification) Error() string {
	if e.ActualVersion > 0 {
		return fmt.Sprintf("concurrent modification detected for journal %d: expected version %d, found %d", e.JournalID, e.ExpectedVersion, e.ActualVersion)
	}
	return fmt.Sprintf("concurrent modification detected for journal %d", e.JournalID)
}

func (e ErrConcurrentModification) Is(target error) bool {
	_, ok := target.(ErrConcurrentModification)
	return ok
}
