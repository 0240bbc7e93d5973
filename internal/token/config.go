package token

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the immutable, read-only bundle of issuer/audience/TTL/key
// material consumed by Service. Once constructed it is never mutated;
// rotating configuration means building a new Service around a new Config.
type Config struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	RefreshHashKey []byte
	JWTKeys        []JWTKey
	ActiveKid      string

	ClockSkew time.Duration

	AccessCookieName  string
	RefreshCookieName string

	LogLevel  string
	LogFormat string
}

type jwtKeyJSON struct {
	Kid       string `json:"kid"`
	SecretB64 string `json:"secret_b64"`
}

// DefaultConfig returns conservative defaults; only the secret material must
// always come from the environment, so this is primarily a fallback for
// fields that have a sane non-secret default.
func DefaultConfig() Config {
	return Config{
		AccessTTL:         15 * time.Minute,
		RefreshTTL:        30 * 24 * time.Hour,
		ClockSkew:         30 * time.Second,
		AccessCookieName:  "access_token",
		RefreshCookieName: "refresh_token",
		LogLevel:          "info",
		LogFormat:         "auto",
	}
}

// LoadConfigFromEnv builds a Config from the environment, per §6 of the
// engine's configuration surface. It validates eagerly: a value that's
// present but malformed (ErrConfigInvalid/ErrConfigDecode/ErrConfigWrongLen)
// or a required value that's absent (ErrConfigMissing) both fail
// construction rather than deferring the failure to first use.
func LoadConfigFromEnv() (Config, error) {
	const op = "token.LoadConfigFromEnv"
	cfg := DefaultConfig()

	issuer, ok := os.LookupEnv("JWT_ISSUER")
	if !ok || strings.TrimSpace(issuer) == "" {
		return Config{}, opErr(op, ErrConfigMissing, "JWT_ISSUER")
	}
	cfg.Issuer = issuer

	audience, ok := os.LookupEnv("JWT_AUDIENCE")
	if !ok || strings.TrimSpace(audience) == "" {
		return Config{}, opErr(op, ErrConfigMissing, "JWT_AUDIENCE")
	}
	cfg.Audience = audience

	if v, ok := os.LookupEnv("ACCESS_TTL_SECONDS"); ok {
		d, err := parseSecondsDuration(v)
		if err != nil {
			return Config{}, opErr(op, ErrConfigInvalid, "ACCESS_TTL_SECONDS: "+err.Error())
		}
		cfg.AccessTTL = d
	}

	if v, ok := os.LookupEnv("REFRESH_TTL_SECONDS"); ok {
		d, err := parseSecondsDuration(v)
		if err != nil {
			return Config{}, opErr(op, ErrConfigInvalid, "REFRESH_TTL_SECONDS: "+err.Error())
		}
		cfg.RefreshTTL = d
	}

	hashKeyB64, ok := os.LookupEnv("REFRESH_HASH_KEY_B64")
	if !ok || strings.TrimSpace(hashKeyB64) == "" {
		return Config{}, opErr(op, ErrConfigMissing, "REFRESH_HASH_KEY_B64")
	}
	hashKey, err := base64.StdEncoding.DecodeString(hashKeyB64)
	if err != nil {
		return Config{}, opErr(op, ErrConfigDecode, "REFRESH_HASH_KEY_B64")
	}
	if len(hashKey) != refreshHashKeyLen {
		return Config{}, opErr(op, ErrConfigWrongLen, "REFRESH_HASH_KEY_B64 must decode to 32 bytes")
	}
	cfg.RefreshHashKey = hashKey

	activeKid, ok := os.LookupEnv("JWT_ACTIVE_KID")
	if !ok || strings.TrimSpace(activeKid) == "" {
		return Config{}, opErr(op, ErrConfigMissing, "JWT_ACTIVE_KID")
	}
	cfg.ActiveKid = activeKid

	keysJSON, ok := os.LookupEnv("JWT_HS256_KEYS_JSON")
	if !ok || strings.TrimSpace(keysJSON) == "" {
		return Config{}, opErr(op, ErrConfigMissing, "JWT_HS256_KEYS_JSON")
	}
	var rawKeys []jwtKeyJSON
	if err := json.Unmarshal([]byte(keysJSON), &rawKeys); err != nil {
		return Config{}, opErr(op, ErrConfigDecode, "JWT_HS256_KEYS_JSON")
	}
	seen := make(map[string]struct{}, len(rawKeys))
	keys := make([]JWTKey, 0, len(rawKeys))
	for _, rk := range rawKeys {
		if rk.Kid == "" {
			return Config{}, opErr(op, ErrConfigInvalid, "JWT_HS256_KEYS_JSON: kid must not be empty")
		}
		if _, dup := seen[rk.Kid]; dup {
			return Config{}, opErr(op, ErrConfigInvalid, "JWT_HS256_KEYS_JSON: duplicate kid "+rk.Kid)
		}
		seen[rk.Kid] = struct{}{}
		secret, err := base64.StdEncoding.DecodeString(rk.SecretB64)
		if err != nil {
			return Config{}, opErr(op, ErrConfigDecode, "JWT_HS256_KEYS_JSON: secret_b64 for kid "+rk.Kid)
		}
		if len(secret) < minKeySecretLen {
			return Config{}, opErr(op, ErrConfigWrongLen, "JWT_HS256_KEYS_JSON: secret for kid "+rk.Kid+" must be >= 32 bytes")
		}
		keys = append(keys, JWTKey{Kid: rk.Kid, Secret: secret})
	}
	if _, ok := seen[cfg.ActiveKid]; !ok {
		return Config{}, opErr(op, ErrConfigInvalid, "JWT_ACTIVE_KID not present in JWT_HS256_KEYS_JSON")
	}
	cfg.JWTKeys = keys

	if v, ok := os.LookupEnv("ACCESS_COOKIE_NAME"); ok && strings.TrimSpace(v) != "" {
		cfg.AccessCookieName = v
	}
	if v, ok := os.LookupEnv("REFRESH_COOKIE_NAME"); ok && strings.TrimSpace(v) != "" {
		cfg.RefreshCookieName = v
	}
	if v, ok := os.LookupEnv("TOKEN_LOG_LEVEL"); ok && strings.TrimSpace(v) != "" {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv("TOKEN_LOG_FORMAT"); ok && strings.TrimSpace(v) != "" {
		cfg.LogFormat = v
	}

	return cfg, nil
}

// RevokedSessionTTL is the default TTL applied to revoked-session sentinels
// in a remote refresh store: max(refresh_TTL, access_TTL) plus a safety
// margin, floored at 30 days.
func (c Config) RevokedSessionTTL() time.Duration {
	base := c.RefreshTTL
	if c.AccessTTL > base {
		base = c.AccessTTL
	}
	withMargin := base + 24*time.Hour
	floor := 30 * 24 * time.Hour
	if withMargin < floor {
		return floor
	}
	return withMargin
}

func parseSecondsDuration(v string) (time.Duration, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconvRangeErr(v)
	}
	return time.Duration(n) * time.Second, nil
}

func strconvRangeErr(v string) error {
	return opErr("token.parseSecondsDuration", ErrConfigInvalid, v+" must be >= 0")
}
