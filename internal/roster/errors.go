package roster

import "errors"

var (
	// ErrEmailMismatch is returned when a row is folded into another person's record.
	ErrEmailMismatch = errors.New("email addresses do not match")

	// ErrDuplicateIdentity is returned when an email is assigned an index twice.
	ErrDuplicateIdentity = errors.New("email already has an identity index")

	// ErrIdentityMismatch means two states disagree on an email's index.
	// The persisted chain is corrupt; it must not be repaired automatically.
	ErrIdentityMismatch = errors.New("identity mappings do not match between states")

	// ErrInvalidAssignment is returned for assignment grids that are not 0/1.
	ErrInvalidAssignment = errors.New("invalid assignment")

	// ErrInvalidRow is returned when an availability row fails validation.
	ErrInvalidRow = errors.New("invalid availability row")
)
