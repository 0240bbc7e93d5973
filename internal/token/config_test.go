package token

import (
	"encoding/base64"
	"testing"
	"time"
)

func setValidConfigEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_ISSUER", "https://tokens.example.com")
	t.Setenv("JWT_AUDIENCE", "example-api")
	t.Setenv("REFRESH_HASH_KEY_B64", base64.StdEncoding.EncodeToString(make([]byte, 32)))
	t.Setenv("JWT_ACTIVE_KID", "k1")
	t.Setenv("JWT_HS256_KEYS_JSON", `[{"kid":"k1","secret_b64":"`+base64.StdEncoding.EncodeToString(make([]byte, 32))+`"}]`)
}

func TestLoadConfigFromEnv_MissingRequired(t *testing.T) {
	setValidConfigEnv(t)
	t.Setenv("JWT_ISSUER", "")
	if _, err := LoadConfigFromEnv(); err == nil {
		t.Fatal("expected error when JWT_ISSUER is empty")
	}
}

func TestLoadConfigFromEnv_BadHashKeyLength(t *testing.T) {
	setValidConfigEnv(t)
	t.Setenv("REFRESH_HASH_KEY_B64", base64.StdEncoding.EncodeToString(make([]byte, 16)))
	_, err := LoadConfigFromEnv()
	if err == nil {
		t.Fatal("expected error for wrong-length hash key")
	}
}

func TestLoadConfigFromEnv_BadHashKeyEncoding(t *testing.T) {
	setValidConfigEnv(t)
	t.Setenv("REFRESH_HASH_KEY_B64", "not-valid-base64!!")
	if _, err := LoadConfigFromEnv(); err == nil {
		t.Fatal("expected error for undecodable hash key")
	}
}

func TestLoadConfigFromEnv_ActiveKidNotInKeySet(t *testing.T) {
	setValidConfigEnv(t)
	t.Setenv("JWT_ACTIVE_KID", "missing")
	if _, err := LoadConfigFromEnv(); err == nil {
		t.Fatal("expected error when active kid is absent from key set")
	}
}

func TestLoadConfigFromEnv_DuplicateKid(t *testing.T) {
	setValidConfigEnv(t)
	secret := base64.StdEncoding.EncodeToString(make([]byte, 32))
	t.Setenv("JWT_HS256_KEYS_JSON", `[{"kid":"k1","secret_b64":"`+secret+`"},{"kid":"k1","secret_b64":"`+secret+`"}]`)
	if _, err := LoadConfigFromEnv(); err == nil {
		t.Fatal("expected error for duplicate kid")
	}
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	setValidConfigEnv(t)
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AccessTTL != DefaultConfig().AccessTTL {
		t.Errorf("AccessTTL = %v, want default %v", cfg.AccessTTL, DefaultConfig().AccessTTL)
	}
	if cfg.AccessCookieName == "" || cfg.RefreshCookieName == "" {
		t.Error("cookie names should default to non-empty values")
	}
}

func TestLoadConfigFromEnv_OverrideTTLs(t *testing.T) {
	setValidConfigEnv(t)
	t.Setenv("ACCESS_TTL_SECONDS", "60")
	t.Setenv("REFRESH_TTL_SECONDS", "120")
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AccessTTL.Seconds() != 60 {
		t.Errorf("AccessTTL = %v, want 60s", cfg.AccessTTL)
	}
	if cfg.RefreshTTL.Seconds() != 120 {
		t.Errorf("RefreshTTL = %v, want 120s", cfg.RefreshTTL)
	}
}

func TestConfig_RevokedSessionTTL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AccessTTL = 0
	cfg.RefreshTTL = 0
	if got, want := cfg.RevokedSessionTTL(), 30*24*time.Hour; got != want {
		t.Errorf("RevokedSessionTTL() = %v, want floor of %v", got, want)
	}
}
