package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SessionKeyPrefix maps a session id to its user id
	SessionKeyPrefix = "session:"
	// UserSessionsKeyPrefix holds the set of session ids of one user
	UserSessionsKeyPrefix = "user_sessions:"
	// OAuthStateKeyPrefix holds pending social login states
	OAuthStateKeyPrefix = "oauth_state:"
)

// RedisSessionStore implements SessionStore and StateStore on Redis.
type RedisSessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisSessionStore(client redis.UniversalClient, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

// newSessionID returns 32 random bytes, base64url encoded.
func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrRandomnessUnavailable, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *RedisSessionStore) Create(ctx context.Context, userID string) (string, error) {
	sid, err := newSessionID()
	if err != nil {
		return "", err
	}

	userKey := UserSessionsKeyPrefix + userID
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, SessionKeyPrefix+sid, userID, s.ttl)
		p.SAdd(ctx, userKey, sid)
		p.Expire(ctx, userKey, s.ttl)
		return nil
	})
	if err != nil {
		return "", storeError(fmt.Errorf("create session: %w", err))
	}
	return sid, nil
}

func (s *RedisSessionStore) Get(ctx context.Context, sid string) (string, error) {
	if sid == "" {
		return "", ErrSessionNotFound
	}
	userID, err := s.client.Get(ctx, SessionKeyPrefix+sid).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", storeError(err)
	}
	return userID, nil
}

func (s *RedisSessionStore) Destroy(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	sessionKey := SessionKeyPrefix + sid

	userID, err := s.client.Get(ctx, sessionKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return errors.Join(ErrSessionDestroyFailed, err)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionKey)
		p.SRem(ctx, UserSessionsKeyPrefix+userID, sid)
		return nil
	})
	if err != nil {
		return errors.Join(ErrSessionDestroyFailed, err)
	}
	return nil
}

// DestroyUser removes every session of userID, e.g. after a password change.
func (s *RedisSessionStore) DestroyUser(ctx context.Context, userID string) error {
	userKey := UserSessionsKeyPrefix + userID
	sids, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return errors.Join(ErrSessionDestroyFailed, err)
	}

	keys := make([]string, 0, len(sids)+1)
	for _, sid := range sids {
		keys = append(keys, SessionKeyPrefix+sid)
	}
	keys = append(keys, userKey)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Join(ErrSessionDestroyFailed, err)
	}
	return nil
}

func (s *RedisSessionStore) PutState(ctx context.Context, state string, ttl time.Duration) error {
	if err := s.client.Set(ctx, OAuthStateKeyPrefix+state, "1", ttl).Err(); err != nil {
		return storeError(err)
	}
	return nil
}

// ConsumeState deletes state and fails when it was not pending.
func (s *RedisSessionStore) ConsumeState(ctx context.Context, state string) error {
	if state == "" {
		return ErrInvalidOAuthState
	}
	err := s.client.GetDel(ctx, OAuthStateKeyPrefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidOAuthState
	}
	if err != nil {
		return storeError(err)
	}
	return nil
}

// RedisWindowCounter counts hits per key in fixed windows.
type RedisWindowCounter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisWindowCounter(client redis.UniversalClient, prefix string) *RedisWindowCounter {
	return &RedisWindowCounter{client: client, prefix: prefix}
}

// Hit increments key and returns the count within the current window.
func (c *RedisWindowCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := c.prefix + key
	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.ExpireNX(ctx, k, window)
		return nil
	})
	if err != nil {
		return 0, storeError(err)
	}
	return incr.Val(), nil
}
