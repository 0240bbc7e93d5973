package refreshstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testHash(plain string) [32]byte {
	var out [32]byte
	copy(out[:], plain)
	return out
}

func insertInitial(t *testing.T, s *MemoryStore, sessionID, plain string, now time.Time, ttl time.Duration) Record {
	t.Helper()
	rec := Record{
		TokenHash: testHash(plain),
		UserID:    "user-1",
		SessionID: sessionID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.InsertInitial(context.Background(), rec); err != nil {
		t.Fatalf("InsertInitial: %v", err)
	}
	return rec
}

func TestMemoryStore_InsertInitialDuplicateHash(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	now := time.Now()
	insertInitial(t, s, "sess-1", "plain-a", now, time.Hour)

	dup := Record{TokenHash: testHash("plain-a"), UserID: "user-1", SessionID: "sess-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := s.InsertInitial(context.Background(), dup); !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal on duplicate hash, got %v", err)
	}
}

func TestMemoryStore_RotateHappyPath(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	now := time.Now()
	insertInitial(t, s, "sess-1", "plain-a", now, time.Hour)

	oldRec, newRec, err := s.Rotate(context.Background(), testHash, "plain-a", "plain-b", now.Add(time.Minute), time.Hour)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if oldRec.Fresh() {
		t.Fatal("rotated-away record must no longer be fresh")
	}
	if oldRec.ReplacedByHash == nil || *oldRec.ReplacedByHash != testHash("plain-b") {
		t.Fatal("old record should point at the new hash")
	}
	if newRec.SessionID != "sess-1" || newRec.ParentHash == nil {
		t.Fatalf("unexpected new record: %+v", newRec)
	}
}

func TestMemoryStore_RotateNotFound(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	_, _, err := s.Rotate(context.Background(), testHash, "never-issued", "plain-b", time.Now(), time.Hour)
	if !errors.Is(err, ErrNotFoundOrExpired) {
		t.Fatalf("expected ErrNotFoundOrExpired, got %v", err)
	}
}

func TestMemoryStore_RotateExpired(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	now := time.Now()
	insertInitial(t, s, "sess-1", "plain-a", now, time.Minute)

	_, _, err := s.Rotate(context.Background(), testHash, "plain-a", "plain-b", now.Add(time.Hour), time.Hour)
	if !errors.Is(err, ErrNotFoundOrExpired) {
		t.Fatalf("expected ErrNotFoundOrExpired for expired record, got %v", err)
	}
}

func TestMemoryStore_RotateReuseRevokesSession(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	now := time.Now()
	insertInitial(t, s, "sess-1", "plain-a", now, time.Hour)

	if _, _, err := s.Rotate(context.Background(), testHash, "plain-a", "plain-b", now, time.Hour); err != nil {
		t.Fatalf("first rotate: %v", err)
	}

	if _, _, err := s.Rotate(context.Background(), testHash, "plain-a", "plain-c", now, time.Hour); !errors.Is(err, ErrReuseDetected) {
		t.Fatalf("expected ErrReuseDetected, got %v", err)
	}

	revoked, err := s.IsSessionRevoked(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("IsSessionRevoked: %v", err)
	}
	if !revoked {
		t.Fatal("reuse must revoke the whole session")
	}

	if _, _, err := s.Rotate(context.Background(), testHash, "plain-b", "plain-d", now, time.Hour); !errors.Is(err, ErrRevoked) {
		t.Fatalf("the latest valid token must also be rejected once the session is revoked, got %v", err)
	}
}

func TestMemoryStore_RevokeSessionIdempotent(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	now := time.Now()
	if err := s.RevokeSession(context.Background(), "sess-1", now); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if err := s.RevokeSession(context.Background(), "sess-1", now.Add(time.Minute)); err != nil {
		t.Fatalf("RevokeSession (second call): %v", err)
	}

	revoked, err := s.IsSessionRevoked(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("IsSessionRevoked: %v", err)
	}
	if !revoked {
		t.Fatal("session should be revoked")
	}
}

func TestMemoryStore_ContextCancelled(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.InsertInitial(ctx, Record{}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestMemoryStore_SweepRemovesExpired(t *testing.T) {
	s := NewMemoryStore(10 * time.Millisecond)
	defer s.Close()

	now := time.Now()
	rec := insertInitial(t, s, "sess-1", "plain-a", now.Add(-time.Hour), time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		_, exists := s.records[rec.TokenHash]
		s.mu.Unlock()
		if !exists {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expired record was not swept")
}
