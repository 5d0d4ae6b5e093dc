package workflow

// FailureKind is the machine-checkable reason a transition was rejected.
type FailureKind string

const (
	FailureNotFound          FailureKind = "NOT_FOUND"
	FailureInvalidTransition FailureKind = "INVALID_TRANSITION"
	FailureMissingReason     FailureKind = "MISSING_REASON"
	FailurePersistence       FailureKind = "PERSISTENCE_ERROR"
)

// Error is a validation failure surfaced to the caller as a structured
// result rather than a crash. Returning one from inside the transition
// transaction rolls the transaction back.
type Error struct {
	Kind    FailureKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
