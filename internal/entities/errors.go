package entities

import "errors"

var (
	// ErrFlowBusy means the session's flow lock could not be acquired
	// within the bounded wait. Transient: the caller backs off and
	// retries; no state was mutated.
	ErrFlowBusy = errors.New("flow busy")
	// ErrSessionStore is a session store read/write failure that
	// survived the single retry.
	ErrSessionStore = errors.New("session store unavailable")
	// ErrServiceUnavailable means a hard dependency (lock manager,
	// store) is fully down; fail fast, no partial persistence.
	ErrServiceUnavailable = errors.New("service unavailable")
)
