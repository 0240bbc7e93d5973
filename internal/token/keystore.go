package token

// JWTKey is one symmetric signing/verification key, identified by kid.
type JWTKey struct {
	Kid    string
	Secret []byte
}

const minKeySecretLen = 32

// KeyStore holds a set of HS256 signing keys and designates one as active
// for signing. All known kids remain valid for verification, which is what
// makes key rolling possible without invalidating outstanding tokens.
type KeyStore struct {
	keys      map[string][]byte
	activeKid string
}

// NewKeyStore validates and builds a KeyStore. It fails with ConfigError
// kinds: ErrConfigMissing (empty set or missing active kid), ErrConfigWrongLen
// (a secret under 32 bytes), ErrConfigInvalid (duplicate kid).
func NewKeyStore(keys []JWTKey, activeKid string) (*KeyStore, error) {
	const op = "token.NewKeyStore"

	if len(keys) == 0 {
		return nil, opErr(op, ErrConfigMissing, "no jwt keys configured")
	}

	byKid := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if k.Kid == "" {
			return nil, opErr(op, ErrConfigInvalid, "kid must not be empty")
		}
		if _, dup := byKid[k.Kid]; dup {
			return nil, opErr(op, ErrConfigInvalid, "duplicate kid: "+k.Kid)
		}
		if len(k.Secret) < minKeySecretLen {
			return nil, opErr(op, ErrConfigWrongLen, "secret for kid "+k.Kid+" must be >= 32 bytes")
		}
		byKid[k.Kid] = k.Secret
	}

	if activeKid == "" {
		return nil, opErr(op, ErrConfigMissing, "active kid not set")
	}
	if _, ok := byKid[activeKid]; !ok {
		return nil, opErr(op, ErrConfigInvalid, "active kid not present in key set: "+activeKid)
	}

	return &KeyStore{keys: byKid, activeKid: activeKid}, nil
}

// SigningKey returns the active key's secret and kid. It always succeeds
// once the KeyStore has been constructed.
func (s *KeyStore) SigningKey() (secret []byte, kid string) {
	return s.keys[s.activeKid], s.activeKid
}

// VerificationKey returns the secret for kid, or the active key's secret if
// kid is empty. ok is false if kid is non-empty and unknown.
func (s *KeyStore) VerificationKey(kid string) (secret []byte, ok bool) {
	if kid == "" {
		kid = s.activeKid
	}
	secret, ok = s.keys[kid]
	return secret, ok
}
