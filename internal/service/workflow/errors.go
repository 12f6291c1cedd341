package workflow

import "errors"

var (
	// ErrIllegalTransition means the transition table has no edge between the
	// current and requested state.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrForbidden means the edge exists but the actor's role carries no
	// grant for it.
	ErrForbidden = errors.New("forbidden")

	// ErrMissingField means the target state requires an extra field the
	// caller did not provide, such as the filing number or a rejection
	// reason.
	ErrMissingField = errors.New("missing required field")
)
