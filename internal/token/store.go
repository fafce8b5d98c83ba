package token

import (
	"context"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-platform/meridian-identity/internal/shared"
)

// RefreshStore persists the single salted hash of the current refresh token
// per principal. Replacing the record is a compare-and-swap so two
// concurrent rotations of the same token cannot both win.
type RefreshStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRefreshStore constructs a RefreshStore. The TTL should match the
// refresh token expiration so orphaned records age out on their own.
func NewRefreshStore(client *redis.Client, ttl time.Duration) *RefreshStore {
	return &RefreshStore{client: client, ttl: ttl}
}

// Set hashes rawToken and stores it, replacing any prior record for the
// principal.
func (s *RefreshStore) Set(ctx context.Context, principalID, rawToken string) error {
	hash, err := hashToken(rawToken)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(principalID), hash, s.ttl).Err()
}

// Clear removes the principal's refresh record (logout / revocation).
func (s *RefreshStore) Clear(ctx context.Context, principalID string) error {
	err := s.client.Del(ctx, s.key(principalID)).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// Compare reports whether rawToken matches the stored record. A missing
// record and a mismatched token fail identically.
func (s *RefreshStore) Compare(ctx context.Context, principalID, rawToken string) error {
	stored, err := s.client.Get(ctx, s.key(principalID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.ErrInvalidRefreshToken
		}
		return err
	}
	if bcrypt.CompareHashAndPassword(stored, tokenDigest(rawToken)) != nil {
		return shared.ErrInvalidRefreshToken
	}
	return nil
}

// Swap atomically replaces the stored record with a hash of newToken,
// provided oldToken still matches the current record. Concurrent swaps on
// the same principal resolve to exactly one winner; losers see
// shared.ErrInvalidRefreshToken.
func (s *RefreshStore) Swap(ctx context.Context, principalID, oldToken, newToken string) error {
	key := s.key(principalID)
	newHash, err := hashToken(newToken)
	if err != nil {
		return err
	}

	txn := func(tx *redis.Tx) error {
		stored, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return shared.ErrInvalidRefreshToken
			}
			return err
		}
		if bcrypt.CompareHashAndPassword(stored, tokenDigest(oldToken)) != nil {
			return shared.ErrInvalidRefreshToken
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newHash, s.ttl)
			return nil
		})
		return err
	}

	if err := s.client.Watch(ctx, txn, key); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			// The record changed under us: a concurrent rotation won.
			return shared.ErrInvalidRefreshToken
		}
		return err
	}
	return nil
}

func (s *RefreshStore) key(principalID string) string {
	return "refresh:" + principalID
}

// tokenDigest pre-hashes the token so bcrypt's 72-byte input limit never
// truncates a compact token.
func tokenDigest(raw string) []byte {
	sum := sha256.Sum256([]byte(raw))
	return sum[:]
}

func hashToken(raw string) ([]byte, error) {
	return bcrypt.GenerateFromPassword(tokenDigest(raw), bcrypt.DefaultCost)
}
