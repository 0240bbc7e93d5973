// Package httpapi is the thin HTTP surface in front of the Token Service:
// it parses requests, calls the core, and formats cookies and JSON
// responses. None of the rotation/reuse-detection/revocation logic lives
// here — only the error-collapsing policy the core recommends.
package httpapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/wardenauth/tokenengine/internal/ports"
	"github.com/wardenauth/tokenengine/internal/token"
)

// Handler wires HTTP routes onto the Token Service and the login-adjacent
// external collaborators.
type Handler struct {
	log   *slog.Logger
	svc   *token.Service
	users ports.UserStore

	accessCookieName  string
	refreshCookieName string
	accessTTL         time.Duration
	refreshTTL        time.Duration
}

// New builds a Handler. users may be nil, in which case /auth/login returns
// 503 (no credential collaborator wired).
func New(log *slog.Logger, svc *token.Service, users ports.UserStore, accessCookieName, refreshCookieName string, accessTTL, refreshTTL time.Duration) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:               log,
		svc:               svc,
		users:             users,
		accessCookieName:  accessCookieName,
		refreshCookieName: refreshCookieName,
		accessTTL:         accessTTL,
		refreshTTL:        refreshTTL,
	}
}

// Register wires every route onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.handleHealthz)
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/refresh", h.handleRefresh)
	mux.HandleFunc("/auth/validate", h.handleValidate)
	mux.HandleFunc("/auth/logout", h.handleLogout)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.users == nil {
		writeError(w, http.StatusServiceUnavailable, "user_store_unavailable", "no credential store configured")
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx := r.Context()
	user, err := h.users.ValidateUser(ctx, email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "bad_credentials", "invalid email or password")
		return
	}

	issued, err := h.svc.IssueInitialSession(ctx, user.ID)
	if err != nil {
		h.log.ErrorContext(ctx, "httpapi.login.issue_failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.setAccessCookie(w, issued.AccessToken)
	h.setRefreshCookie(w, issued.RefreshTokenPlain)

	writeJSON(w, http.StatusOK, sessionResponse{UserID: issued.UserID, SessionID: issued.SessionID})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cookie, err := r.Cookie(h.refreshCookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		writeError(w, http.StatusUnauthorized, "session_not_active", "refresh token missing")
		return
	}

	ctx := r.Context()
	issued, err := h.svc.Refresh(ctx, cookie.Value)
	if err != nil {
		// Per the core's error-collapsing recommendation: reuse detection,
		// revocation, and an unknown/expired token must all look identical
		// on the wire, so a client cannot distinguish "never valid" from
		// "was valid, now burned".
		switch {
		case token.IsReuseDetected(err), token.IsRevoked(err), token.IsNotFoundOrExpired(err):
			h.clearCookies(w)
			writeError(w, http.StatusUnauthorized, "session_not_active", "session not active")
		default:
			h.log.ErrorContext(ctx, "httpapi.refresh.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.setAccessCookie(w, issued.AccessToken)
	h.setRefreshCookie(w, issued.RefreshTokenPlain)

	writeJSON(w, http.StatusOK, sessionResponse{UserID: issued.UserID, SessionID: issued.SessionID})
}

type validateResponse struct {
	Sub string `json:"sub"`
	Sid string `json:"sid"`
	Exp int64  `json:"exp"`
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	accessToken := bearerToken(r)
	if accessToken == "" {
		if cookie, err := r.Cookie(h.accessCookieName); err == nil {
			accessToken = cookie.Value
		}
	}
	if accessToken == "" {
		writeError(w, http.StatusUnauthorized, "invalid_token", "access token missing")
		return
	}

	claims, err := h.svc.ValidateAccess(r.Context(), accessToken)
	if err != nil {
		// BadKey and InvalidToken collapse into one response here;
		// RevokedSession is deliberately indistinguishable from them too.
		writeError(w, http.StatusUnauthorized, "invalid_token", "access token invalid or session revoked")
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{Sub: claims.Sub, Sid: claims.Sid, Exp: claims.Exp})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	accessToken := bearerToken(r)
	if accessToken == "" {
		if cookie, err := r.Cookie(h.accessCookieName); err == nil {
			accessToken = cookie.Value
		}
	}

	ctx := r.Context()
	if accessToken != "" {
		if claims, err := h.svc.ValidateAccess(ctx, accessToken); err == nil {
			h.svc.LogoutSession(ctx, claims.Sid)
		}
	}

	h.clearCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(raw) > len(prefix) && strings.EqualFold(raw[:len(prefix)], prefix) {
		return strings.TrimSpace(raw[len(prefix):])
	}
	return ""
}

func (h *Handler) setAccessCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.accessCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.accessTTL.Seconds()),
	})
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.refreshCookieName,
		Value:    value,
		Path:     "/auth/refresh",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.refreshTTL.Seconds()),
	})
}

func (h *Handler) clearCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: h.accessCookieName, Value: "", Path: "/", MaxAge: -1})
	http.SetCookie(w, &http.Cookie{Name: h.refreshCookieName, Value: "", Path: "/auth/refresh", MaxAge: -1})
}
