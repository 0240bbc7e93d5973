package token

import "testing"

func validKey(kid string) JWTKey {
	return JWTKey{Kid: kid, Secret: []byte("0123456789abcdef0123456789abcdef")}
}

func TestNewKeyStore_Empty(t *testing.T) {
	if _, err := NewKeyStore(nil, "a"); err == nil {
		t.Fatal("expected error for empty key set, got nil")
	}
}

func TestNewKeyStore_DuplicateKid(t *testing.T) {
	_, err := NewKeyStore([]JWTKey{validKey("a"), validKey("a")}, "a")
	if err == nil {
		t.Fatal("expected error for duplicate kid")
	}
}

func TestNewKeyStore_ShortSecret(t *testing.T) {
	_, err := NewKeyStore([]JWTKey{{Kid: "a", Secret: []byte("short")}}, "a")
	if err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestNewKeyStore_UnknownActiveKid(t *testing.T) {
	_, err := NewKeyStore([]JWTKey{validKey("a")}, "b")
	if err == nil {
		t.Fatal("expected error for unknown active kid")
	}
}

func TestKeyStore_SigningAndVerification(t *testing.T) {
	ks, err := NewKeyStore([]JWTKey{validKey("a"), validKey("b")}, "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	secret, kid := ks.SigningKey()
	if kid != "b" {
		t.Fatalf("signing kid = %q, want b", kid)
	}
	if len(secret) == 0 {
		t.Fatal("signing secret empty")
	}

	if _, ok := ks.VerificationKey("a"); !ok {
		t.Fatal("old kid a should still verify after rotation to b")
	}
	if _, ok := ks.VerificationKey(""); !ok {
		t.Fatal("empty kid should fall back to active key")
	}
	if _, ok := ks.VerificationKey("missing"); ok {
		t.Fatal("unknown kid should not verify")
	}
}
