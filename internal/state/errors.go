package state

import "errors"

var (
	ErrInvalidChainConfig = errors.New("invalid chain config")
	ErrShapeMismatch      = errors.New("shape mismatch")
	ErrSemesterOver       = errors.New("no weeks left in the semester")
	ErrRowsRewound        = errors.New("availability source has fewer rows than already consumed")
	ErrAlreadyCommitted   = errors.New("week already has an assignment")
	ErrNotCommitted       = errors.New("week has no assignment yet")
	ErrStaleDraft         = errors.New("chain moved on since the draft was created")

	// ErrChainIntegrity covers every broken link between persisted weeks.
	// It is never repaired automatically.
	ErrChainIntegrity  = errors.New("state chain integrity violated")
	ErrCorruptSnapshot = errors.New("corrupt state snapshot")
	// ErrConflict means another run stored a week this chain was about
	// to write.
	ErrConflict = errors.New("week already stored by another run")
)
