package token

import (
	"crypto/hmac"
	"crypto/sha256"
)

const refreshHashKeyLen = 32

// HashRefresh computes the keyed HMAC-SHA-256 of an opaque refresh token
// plaintext. Unlike the ambient token-hashing helper this package was
// adapted from, there is no unkeyed fallback: callers must supply the full
// 32-byte hash key every time, so a misconfigured key is a construction-time
// ConfigError rather than a silent weakening of the hash at request time.
func HashRefresh(hashKey []byte, plain string) [32]byte {
	mac := hmac.New(sha256.New, hashKey)
	mac.Write([]byte(plain))
	var out [32]byte
	copy(out[:], mac.Sum(nil))
	return out
}

func validateHashKey(hashKey []byte) error {
	const op = "token.HashRefresh"
	if len(hashKey) == 0 {
		return opErr(op, ErrConfigMissing, "refresh hash key not set")
	}
	if len(hashKey) != refreshHashKeyLen {
		return opErr(op, ErrConfigWrongLen, "refresh hash key must be exactly 32 bytes")
	}
	return nil
}
