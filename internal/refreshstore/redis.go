package refreshstore

import (
	"context"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	refreshKeyPrefix  = "refresh_token:"
	revokedKeyPrefix  = "revoked_session:"
	minRedisRecordTTL = time.Second
	maxRotateAttempts = 5
)

// RedisStore is the remote Store implementation, backed by go-redis. Records
// are stored as hash values keyed by refresh_token:<hex>; revoked sessions
// as scalar sentinels keyed by revoked_session:<uuid>. Rotate uses Redis's
// WATCH/MULTI optimistic-locking transaction on the old record's key so that
// of two concurrent rotations of the same presented plaintext, only one can
// commit the old-record mutation; the loser re-reads and observes reuse.
type RedisStore struct {
	rdb        *redis.Client
	revokedTTL time.Duration
}

// NewRedisStore builds a RedisStore. revokedTTL is applied to every
// revoked_session:* sentinel and should be at least Config.RevokedSessionTTL().
func NewRedisStore(rdb *redis.Client, revokedTTL time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, revokedTTL: revokedTTL}
}

func refreshKey(hash [32]byte) string {
	return refreshKeyPrefix + hex.EncodeToString(hash[:])
}

func revokedKey(sessionID string) string {
	return revokedKeyPrefix + sessionID
}

func recordFields(r Record) map[string]any {
	f := map[string]any{
		"token_hash": hex.EncodeToString(r.TokenHash[:]),
		"user_id":    r.UserID,
		"session_id": r.SessionID,
		"created_at": r.CreatedAt.UTC().Unix(),
		"expires_at": r.ExpiresAt.UTC().Unix(),
	}
	if r.ParentHash != nil {
		f["parent_hash"] = hex.EncodeToString(r.ParentHash[:])
	}
	if r.ReplacedByHash != nil {
		f["replaced_by_hash"] = hex.EncodeToString(r.ReplacedByHash[:])
	}
	if r.UsedAt != nil {
		f["used_at"] = r.UsedAt.UTC().Unix()
	}
	if r.RevokedAt != nil {
		f["revoked_at"] = r.RevokedAt.UTC().Unix()
	}
	return f
}

func recordFromFields(m map[string]string) (Record, error) {
	if len(m) == 0 {
		return Record{}, errRecordNotFound
	}

	var r Record
	hashBytes, err := hex.DecodeString(m["token_hash"])
	if err != nil || len(hashBytes) != 32 {
		return Record{}, errRecordNotFound
	}
	copy(r.TokenHash[:], hashBytes)
	r.UserID = m["user_id"]
	r.SessionID = m["session_id"]

	if r.CreatedAt, err = parseUnix(m["created_at"]); err != nil {
		return Record{}, errRecordNotFound
	}
	if r.ExpiresAt, err = parseUnix(m["expires_at"]); err != nil {
		return Record{}, errRecordNotFound
	}
	if v, ok := m["parent_hash"]; ok && v != "" {
		h, err := decodeHash(v)
		if err != nil {
			return Record{}, errRecordNotFound
		}
		r.ParentHash = &h
	}
	if v, ok := m["replaced_by_hash"]; ok && v != "" {
		h, err := decodeHash(v)
		if err != nil {
			return Record{}, errRecordNotFound
		}
		r.ReplacedByHash = &h
	}
	if v, ok := m["used_at"]; ok && v != "" {
		t, err := parseUnix(v)
		if err != nil {
			return Record{}, errRecordNotFound
		}
		r.UsedAt = &t
	}
	if v, ok := m["revoked_at"]; ok && v != "" {
		t, err := parseUnix(v)
		if err != nil {
			return Record{}, errRecordNotFound
		}
		r.RevokedAt = &t
	}
	return r, nil
}

var errRecordNotFound = errors.New("refreshstore: malformed or missing record")

func decodeHash(hexStr string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(hexStr)
	if err != nil || len(b) != 32 {
		return out, errRecordNotFound
	}
	copy(out[:], b)
	return out, nil
}

func parseUnix(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(n, 0).UTC(), nil
}

func clampTTL(d time.Duration) time.Duration {
	if d < minRedisRecordTTL {
		return minRedisRecordTTL
	}
	return d
}

func (s *RedisStore) InsertInitial(ctx context.Context, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := refreshKey(record.TokenHash)

	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return ErrInternal
	}
	if exists == 1 {
		return ErrInternal
	}

	ttl := clampTTL(time.Until(record.ExpiresAt))
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, recordFields(record))
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return ErrInternal
	}
	return nil
}

func (s *RedisStore) getRecord(ctx context.Context, key string) (Record, error) {
	m, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return Record{}, ErrInternal
	}
	rec, err := recordFromFields(m)
	if err != nil {
		return Record{}, ErrNotFoundOrExpired
	}
	return rec, nil
}

func (s *RedisStore) Rotate(ctx context.Context, hash HashFunc, presentedPlain, newPlain string, now time.Time, ttl time.Duration) (Record, Record, error) {
	oldHashArr := hash(presentedPlain)
	newHashArr := hash(newPlain)
	oldKey := refreshKey(oldHashArr)
	newKey := refreshKey(newHashArr)

	for attempt := 0; attempt < maxRotateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Record{}, Record{}, err
		}

		var result struct {
			old, new Record
			err      error
		}

		txErr := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			m, err := tx.HGetAll(ctx, oldKey).Result()
			if err != nil {
				return ErrInternal
			}
			old, err := recordFromFields(m)
			if err != nil {
				return ErrNotFoundOrExpired
			}

			if !old.ExpiresAt.After(now) {
				return ErrNotFoundOrExpired
			}

			revoked, err := s.IsSessionRevoked(ctx, old.SessionID)
			if err != nil {
				return ErrInternal
			}
			if old.RevokedAt != nil || revoked {
				return ErrRevoked
			}

			if old.ReplacedByHash != nil || old.UsedAt != nil {
				if revokeErr := s.RevokeSession(ctx, old.SessionID, now); revokeErr != nil {
					return ErrInternal
				}
				return ErrReuseDetected
			}

			remaining := old.ExpiresAt.Sub(now)
			if remaining <= 0 {
				return ErrNotFoundOrExpired
			}

			usedAt := now
			nh := newHashArr
			old.UsedAt = &usedAt
			old.ReplacedByHash = &nh

			oh := oldHashArr
			newRecord := Record{
				TokenHash:  newHashArr,
				UserID:     old.UserID,
				SessionID:  old.SessionID,
				CreatedAt:  now,
				ExpiresAt:  now.Add(ttl),
				ParentHash: &oh,
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, oldKey, recordFields(old))
				pipe.Expire(ctx, oldKey, clampTTL(remaining))
				pipe.HSet(ctx, newKey, recordFields(newRecord))
				pipe.Expire(ctx, newKey, clampTTL(ttl))
				return nil
			})
			if err != nil {
				if errors.Is(err, redis.TxFailedErr) {
					return err
				}
				return ErrInternal
			}

			result.old, result.new = old, newRecord
			return nil
		}, oldKey)

		switch {
		case txErr == nil:
			return result.old, result.new, nil
		case errors.Is(txErr, redis.TxFailedErr):
			// Lost the optimistic race against a concurrent rotation of the
			// same presented plaintext; re-read and let the next attempt
			// observe the now-rotated record as reuse.
			continue
		default:
			return Record{}, Record{}, txErr
		}
	}

	return Record{}, Record{}, ErrInternal
}

func (s *RedisStore) RevokeSession(ctx context.Context, sessionID string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, revokedKey(sessionID), now.UTC().Unix(), s.revokedTTL).Err(); err != nil {
		return ErrInternal
	}
	return nil
}

func (s *RedisStore) IsSessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	n, err := s.rdb.Exists(ctx, revokedKey(sessionID)).Result()
	if err != nil {
		return false, ErrInternal
	}
	return n == 1, nil
}
