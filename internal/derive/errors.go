package derive

import "errors"

// Fatal vs transient error kinds the producer loop dispatches on. Transient
// errors trigger a 1s backoff and retry without advancing the cursor;
// fatal errors abort the process so a supervisor restarts from the last
// durable cursor.
var (
	// ErrL1Unreachable wraps a failed call to the Bitcoin full node.
	ErrL1Unreachable = errors.New("derive: l1 unreachable")
	// ErrDABackendUnreachable wraps a failed DA Get/Put call.
	ErrDABackendUnreachable = errors.New("derive: da backend unreachable")
	// ErrL1ReorgDetected is fatal: the block at height h's parent hash
	// does not match the previously observed block at h-1.
	ErrL1ReorgDetected = errors.New("derive: l1 reorg detected, operator intervention required")
	// ErrStartHeightBeyondTip is returned at construction time when the
	// persisted height overruns the chain tip.
	ErrStartHeightBeyondTip = errors.New("derive: starting height greater than chain height")
)
