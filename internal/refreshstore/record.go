// Package refreshstore implements the Refresh Store: persistence and
// rotation of opaque refresh tokens, keyed by their hash, with reuse
// detection and session revocation.
package refreshstore

import "time"

// Record is a persisted refresh token. TokenHash is the primary key: the
// keyed hash of the opaque plaintext the caller presented, never the
// plaintext itself.
type Record struct {
	TokenHash [32]byte
	UserID    string
	SessionID string

	CreatedAt time.Time
	ExpiresAt time.Time

	ParentHash     *[32]byte
	ReplacedByHash *[32]byte
	UsedAt         *time.Time
	RevokedAt      *time.Time
}

// Fresh reports whether the record has neither been rotated nor revoked.
func (r Record) Fresh() bool {
	return r.ReplacedByHash == nil && r.UsedAt == nil && r.RevokedAt == nil
}
