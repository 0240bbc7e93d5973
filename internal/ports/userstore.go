// Package ports declares the external collaborators the engine's HTTP shell
// consumes but the Token Service never calls directly: user credential
// storage, two-factor code delivery, and outbound email. None of this is
// part of the core's correctness surface; it exists so cmd/tokenengine has
// a login route to put in front of token.Service.
package ports

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"

	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// User is the minimal principal a login flow needs.
type User struct {
	ID    string
	Email string
}

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrBadCredentials    = errors.New("bad credentials")
)

// UserStore is consumed by login/signup routes, never by token.Service.
type UserStore interface {
	ValidateUser(ctx context.Context, email, password string) (User, error)
	AddUser(ctx context.Context, email, password string) (User, error)
	GetUser(ctx context.Context, email string) (User, error)
	DeleteUser(ctx context.Context, email string) error
}

// MemoryUserStore is a reference UserStore backed by a map, with Argon2id
// password hashing adapted from the engine's password-hashing idiom. It
// exists to make the UserStore port concrete and testable; it is not a
// registration feature (signup flows, password policy enforcement, and
// email verification are explicitly out of scope).
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]memoryUser
}

type memoryUser struct {
	user User
	hash string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]memoryUser)}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (m *MemoryUserStore) AddUser(ctx context.Context, email, password string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	key := normalizeEmail(email)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[key]; exists {
		return User{}, ErrUserAlreadyExists
	}

	hash, err := hashPassword(password)
	if err != nil {
		return User{}, err
	}
	u := User{ID: key, Email: key}
	m.users[key] = memoryUser{user: u, hash: hash}
	return u, nil
}

func (m *MemoryUserStore) ValidateUser(ctx context.Context, email, password string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	key := normalizeEmail(email)

	m.mu.RLock()
	rec, ok := m.users[key]
	m.mu.RUnlock()
	if !ok {
		return User{}, ErrUserNotFound
	}

	ok2, err := verifyPassword(password, rec.hash)
	if err != nil || !ok2 {
		return User{}, ErrBadCredentials
	}
	return rec.user, nil
}

func (m *MemoryUserStore) GetUser(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	key := normalizeEmail(email)

	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.users[key]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return rec.user, nil
}

func (m *MemoryUserStore) DeleteUser(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := normalizeEmail(email)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[key]; !ok {
		return ErrUserNotFound
	}
	delete(m.users, key)
	return nil
}

// Argon2id parameters, conservative interactive-login defaults.
const (
	argon2MemoryKiB   = 64 * 1024
	argon2Iterations  = 3
	argon2Parallelism = 2
	argon2SaltLen     = 16
	argon2KeyLen      = 32
)

func hashPassword(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, argon2Iterations, argon2MemoryKiB, argon2Parallelism, argon2KeyLen)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argon2MemoryKiB, argon2Iterations, argon2Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

func verifyPassword(password, encoded string) (bool, error) {
	var mem, it, par uint32
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, errors.New("invalid password hash")
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil {
		return false, err
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return false, err
	}
	expected, err := b64.DecodeString(parts[5])
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(password), salt, it, mem, uint8(par), uint32(len(expected)))
	return subtle.ConstantTimeCompare(got, expected) == 1, nil
}
