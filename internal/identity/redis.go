package identity

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	cli       redis.UniversalClient
	namespace string
}

// NewRedisStore keeps identities under "<namespace>:<key>".
func NewRedisStore(cli redis.UniversalClient, namespace string) *RedisStore {
	return &RedisStore{cli: cli, namespace: namespace}
}

func (r *RedisStore) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

func (r *RedisStore) Resolve(ctx context.Context, sessionID string) (string, bool, error) {
	if sessionID == "" {
		return "", false, ErrEmptySession
	}
	v, err := r.cli.Get(ctx, r.key(PlayerKey(sessionID))).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisStore) Persist(ctx context.Context, sessionID, playerID string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	return r.cli.Set(ctx, r.key(PlayerKey(sessionID)), playerID, 0).Err()
}

func (r *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	return r.cli.Del(ctx, r.key(PlayerKey(sessionID))).Err()
}

func (r *RedisStore) PersistCredential(ctx context.Context, sessionID, token string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	return r.cli.Set(ctx, r.key(CredentialKey(sessionID)), token, 0).Err()
}

func (r *RedisStore) ClearCredential(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	return r.cli.Del(ctx, r.key(CredentialKey(sessionID))).Err()
}

func (r *RedisStore) Credential(ctx context.Context, sessionID string) (string, bool, error) {
	if sessionID == "" {
		return "", false, ErrEmptySession
	}
	v, err := r.cli.Get(ctx, r.key(CredentialKey(sessionID))).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisStore) Close() error {
	return r.cli.Close()
}
