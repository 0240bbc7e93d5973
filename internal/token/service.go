package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wardenauth/tokenengine/internal/refreshstore"
)

const refreshPlainBytes = 32

// Service orchestrates the Key Store, Refresh Hasher, and Refresh Store
// behind the four operations the rest of the system calls: issuing a
// session, rotating a refresh token, validating an access token, and
// logging a session out.
type Service struct {
	cfg     Config
	keys    *KeyStore
	store   refreshstore.Store
	metrics *Metrics
	log     *slog.Logger
	now     func() time.Time
}

// NewService wires a Service from its dependencies. log and metrics may be
// nil; a nil logger discards, a nil metrics set is simply never recorded to.
func NewService(cfg Config, keys *KeyStore, store refreshstore.Store, metrics *Metrics, log *slog.Logger) (*Service, error) {
	const op = "token.NewService"
	if err := validateHashKey(cfg.RefreshHashKey); err != nil {
		return nil, err
	}
	if keys == nil {
		return nil, opErr(op, ErrConfigMissing, "key store")
	}
	if store == nil {
		return nil, opErr(op, ErrConfigMissing, "refresh store")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{
		cfg:     cfg,
		keys:    keys,
		store:   store,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}, nil
}

func (s *Service) hashRefresh(plain string) [32]byte {
	return HashRefresh(s.cfg.RefreshHashKey, plain)
}

func newRefreshPlain() (string, error) {
	buf := make([]byte, refreshPlainBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// IssueInitialSession creates a brand-new session for userID: a fresh
// session id, an initial refresh record with no parent, and a signed access
// token.
func (s *Service) IssueInitialSession(ctx context.Context, userID string) (IssuedTokens, error) {
	const op = "token.IssueInitialSession"
	if err := ctx.Err(); err != nil {
		return IssuedTokens{}, err
	}

	sessionID := uuid.NewString()
	now := s.now()

	refreshPlain, err := newRefreshPlain()
	if err != nil {
		s.recordIssue(false)
		return IssuedTokens{}, opErr(op, ErrInternal, err.Error())
	}

	record := refreshstore.Record{
		TokenHash: s.hashRefresh(refreshPlain),
		UserID:    userID,
		SessionID: sessionID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
	}
	if err := s.store.InsertInitial(ctx, record); err != nil {
		s.recordIssue(false)
		return IssuedTokens{}, opErr(op, ErrInternal, err.Error())
	}

	access, err := s.signAccessToken(userID, sessionID, now)
	if err != nil {
		s.recordIssue(false)
		return IssuedTokens{}, opErr(op, ErrInternal, err.Error())
	}

	s.recordIssue(true)
	s.log.InfoContext(ctx, "token.issue", "sid", sessionID, "outcome", "ok")

	return IssuedTokens{
		UserID:            userID,
		SessionID:         sessionID,
		AccessToken:       access,
		RefreshTokenPlain: refreshPlain,
	}, nil
}

// Refresh rotates presentedPlain for a fresh refresh/access pair, or
// propagates the Refresh Store's rotation error unchanged.
func (s *Service) Refresh(ctx context.Context, presentedPlain string) (IssuedTokens, error) {
	if err := ctx.Err(); err != nil {
		return IssuedTokens{}, err
	}

	now := s.now()
	newPlain, err := newRefreshPlain()
	if err != nil {
		return IssuedTokens{}, opErr("token.Refresh", ErrInternal, err.Error())
	}

	_, newRecord, err := s.store.Rotate(ctx, s.hashRefresh, presentedPlain, newPlain, now, s.cfg.RefreshTTL)
	if err != nil {
		s.recordRotate(rotateOutcome(err))
		return IssuedTokens{}, translateRotateErr(err)
	}

	access, err := s.signAccessToken(newRecord.UserID, newRecord.SessionID, now)
	if err != nil {
		s.recordRotate("internal")
		return IssuedTokens{}, opErr("token.Refresh", ErrInternal, err.Error())
	}

	s.recordRotate("ok")
	s.log.InfoContext(ctx, "token.rotate", "sid", newRecord.SessionID, "outcome", "ok")

	return IssuedTokens{
		UserID:            newRecord.UserID,
		SessionID:         newRecord.SessionID,
		AccessToken:       access,
		RefreshTokenPlain: newPlain,
	}, nil
}

// ValidateAccess verifies an access token's signature, claims, and the
// liveness of its session, returning the parsed claims on success.
func (s *Service) ValidateAccess(ctx context.Context, accessToken string) (AccessClaims, error) {
	const op = "token.ValidateAccess"
	if err := ctx.Err(); err != nil {
		return AccessClaims{}, err
	}

	var claims AccessClaims
	parsed, err := jwt.ParseWithClaims(accessToken, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		secret, ok := s.keys.VerificationKey(kid)
		if !ok {
			return nil, opErr(op, ErrBadKey, "kid="+kid)
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithLeeway(s.cfg.ClockSkew),
	)
	if err != nil {
		var opErrVal *OpError
		if errors.As(err, &opErrVal) && opErrVal.Kind == ErrBadKey {
			s.recordValidate("bad_key")
			return AccessClaims{}, opErrVal
		}
		s.recordValidate("invalid")
		return AccessClaims{}, opErr(op, ErrInvalidToken, err.Error())
	}
	if !parsed.Valid {
		s.recordValidate("invalid")
		return AccessClaims{}, opErr(op, ErrInvalidToken, "token not valid")
	}

	if _, err := uuid.Parse(claims.Sid); err != nil {
		s.recordValidate("invalid")
		return AccessClaims{}, opErr(op, ErrInvalidToken, "sid not a uuid")
	}

	revoked, err := s.store.IsSessionRevoked(ctx, claims.Sid)
	if err != nil {
		s.recordValidate("invalid")
		return AccessClaims{}, opErr(op, ErrInvalidToken, err.Error())
	}
	if revoked {
		s.recordValidate("revoked")
		return AccessClaims{}, opErr(op, ErrRevokedSession, "sid="+claims.Sid)
	}

	s.recordValidate("ok")
	return claims, nil
}

// LogoutSession revokes sessionID. Idempotent; never errors to the caller.
func (s *Service) LogoutSession(ctx context.Context, sessionID string) {
	now := s.now()
	if err := s.store.RevokeSession(ctx, sessionID, now); err != nil {
		s.log.WarnContext(ctx, "token.logout.store_error", "sid", sessionID, "err", err)
		return
	}
	if s.metrics != nil {
		s.metrics.LogoutTotal.Inc()
	}
	s.log.InfoContext(ctx, "token.logout", "sid", sessionID)
}

func (s *Service) signAccessToken(userID, sessionID string, now time.Time) (string, error) {
	secret, kid := s.keys.SigningKey()

	claims := AccessClaims{
		Sub: userID,
		Iss: s.cfg.Issuer,
		Aud: s.cfg.Audience,
		Iat: now.Unix(),
		Exp: now.Add(s.cfg.AccessTTL).Unix(),
		Jti: uuid.NewString(),
		Sid: sessionID,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tok.Header["kid"] = kid
	return tok.SignedString(secret)
}

func (s *Service) recordIssue(ok bool) {
	if s.metrics == nil {
		return
	}
	if ok {
		s.metrics.IssueTotal.Inc()
	}
}

func (s *Service) recordRotate(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RotateTotal.WithLabelValues(outcome).Inc()
}

func (s *Service) recordValidate(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ValidateTotal.WithLabelValues(outcome).Inc()
}

func rotateOutcome(err error) string {
	switch {
	case errors.Is(err, refreshstore.ErrNotFoundOrExpired):
		return "not_found_or_expired"
	case errors.Is(err, refreshstore.ErrRevoked):
		return "revoked"
	case errors.Is(err, refreshstore.ErrReuseDetected):
		return "reuse_detected"
	default:
		return "internal"
	}
}

func translateRotateErr(err error) error {
	const op = "token.Refresh"
	switch {
	case errors.Is(err, refreshstore.ErrNotFoundOrExpired):
		return opErr(op, ErrNotFoundOrExpired, "")
	case errors.Is(err, refreshstore.ErrRevoked):
		return opErr(op, ErrRevoked, "")
	case errors.Is(err, refreshstore.ErrReuseDetected):
		return opErr(op, ErrReuseDetected, "")
	default:
		return opErr(op, ErrInternal, fmt.Sprintf("%v", err))
	}
}
