package refreshstore

import (
	"context"
	"errors"
	"time"
)

// Outcome kinds returned by Rotate, distinguishable by the caller via
// errors.Is. Internal folds every storage-layer failure the store itself
// cannot recover from.
var (
	ErrNotFoundOrExpired = errors.New("refresh token not found or expired")
	ErrRevoked           = errors.New("session revoked")
	ErrReuseDetected     = errors.New("refresh token reuse detected")
	ErrInternal          = errors.New("internal error")
)

// HashFunc computes the keyed hash of a refresh token plaintext. Store
// implementations never see the hash key or the hashing algorithm directly;
// they're handed a closure so refreshstore has no dependency on how the
// caller chooses to hash.
type HashFunc func(plain string) [32]byte

// Store is the polymorphic Refresh Store capability (C3). Both the
// in-memory and Redis implementations satisfy this contract identically,
// including the linearizability requirement on Rotate: no two successful
// rotations of the same presented plaintext may both succeed.
type Store interface {
	// InsertInitial stores a brand-new record with no parent. Fails with
	// ErrInternal if a record with the same TokenHash already exists.
	InsertInitial(ctx context.Context, record Record) error

	// Rotate exchanges the record matching H(presentedPlain) for a new one
	// hashed from newPlain, or fails per the state machine in §4.3:
	// missing/expired -> ErrNotFoundOrExpired, revoked -> ErrRevoked,
	// already-rotated -> ErrReuseDetected (after revoking the whole
	// session), otherwise both records are returned.
	Rotate(ctx context.Context, hash HashFunc, presentedPlain, newPlain string, now time.Time, ttl time.Duration) (oldRecord, newRecord Record, err error)

	// RevokeSession marks sessionID revoked. Idempotent.
	RevokeSession(ctx context.Context, sessionID string, now time.Time) error

	// IsSessionRevoked reports whether sessionID has been revoked.
	IsSessionRevoked(ctx context.Context, sessionID string) (bool, error)
}
