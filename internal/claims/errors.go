package claims

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an insured party or claim does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateIdentifier is returned on a national code or claim number collision.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	// ErrReferentialBlock is returned when deleting an insured party that still has claims.
	ErrReferentialBlock = errors.New("insured party has claims")
	// ErrInvalidInput is returned for malformed field values the validator cannot catch.
	ErrInvalidInput = errors.New("invalid input")
)

// SyncError reports a relational write that committed while a follow-up
// step (graph mirror, alerting) failed. The record returned alongside it is valid.
type SyncError struct {
	Op  string
	ID  int64
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s %d: committed but follow-up failed: %v", e.Op, e.ID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsSyncError reports whether err carries a *SyncError.
func IsSyncError(err error) bool {
	var syncErr *SyncError
	return errors.As(err, &syncErr)
}
