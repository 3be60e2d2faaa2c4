package commitment

import "errors"

// Sentinel errors for commitment validation, wrapped with %w so callers
// can match them with errors.Is. The fetcher's per-output decode treats
// every one of them alike: the output is logged and skipped. Mirrors the
// teacher core
// package's shallow sentinel-error style rather than a bespoke error-kind
// enum.
var (
	// ErrMalformedCommitment is returned by Decode when the input is not
	// exactly 40 bytes.
	ErrMalformedCommitment = errors.New("commitment: malformed record")
	// ErrChainIDMismatch is returned by Check when a non-config record's
	// chain id does not match the fetcher's current chain id.
	ErrChainIDMismatch = errors.New("commitment: chain id mismatch")
	// ErrBadTxType is returned by Check when tx_type is outside {0,1}.
	ErrBadTxType = errors.New("commitment: bad tx type")
	// ErrUnknownDA is returned by Check when da_type is not registered
	// with the active DA manager.
	ErrUnknownDA = errors.New("commitment: unknown da type")
	// ErrBadVersion is returned by Check when version or filling is
	// nonzero.
	ErrBadVersion = errors.New("commitment: bad version")
)
