package credentials

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures ConnectRedis.
type RedisConfig struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// ConnectRedis opens a client and pings it, retrying RetryAttempts times.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrInvalidRedisURL, err)
	}

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for i := range attempts {
		client := redis.NewClient(opts)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrRedisNotReady, lastErr)
}

const (
	fieldClientID     = "cid"
	fieldRegisteredAt = "registered_at"
	fieldAPIBase      = "api_base"
)

// RedisStore keeps the credential under {prefix}:token and the record as a
// hash under {prefix}:push.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store using client. An empty prefix defaults to "notify".
func NewRedisStore(client redis.UniversalClient, prefix string) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if prefix == "" {
		prefix = "notify"
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) tokenKey() string  { return s.prefix + ":token" }
func (s *RedisStore) recordKey() string { return s.prefix + ":push" }

// Token reads {prefix}:token. A missing key means no credential.
func (s *RedisStore) Token(ctx context.Context) (string, error) {
	v, err := s.client.Get(ctx, s.tokenKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", errors.Join(ErrStoreUnavailable, err)
	}
	return normalizeToken(v), nil
}

// SetToken writes {prefix}:token, deleting the key for an empty token.
func (s *RedisStore) SetToken(ctx context.Context, token string) error {
	token = normalizeToken(token)

	var err error
	if token == "" {
		err = s.client.Del(ctx, s.tokenKey()).Err()
	} else {
		err = s.client.Set(ctx, s.tokenKey(), token, 0).Err()
	}
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// LoadRecord reads the {prefix}:push hash.
func (s *RedisStore) LoadRecord(ctx context.Context) (PushRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.recordKey()).Result()
	if err != nil {
		return PushRecord{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return PushRecord{}, nil
	}

	rec := PushRecord{
		ClientID: fields[fieldClientID],
		APIBase:  fields[fieldAPIBase],
	}
	if raw := fields[fieldRegisteredAt]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return PushRecord{}, errors.Join(ErrCorruptStore, err)
		}
		rec.RegisteredAt = time.UnixMilli(ms).UTC()
	}
	return rec, nil
}

// SaveRecord replaces the {prefix}:push hash in one transaction.
func (s *RedisStore) SaveRecord(ctx context.Context, rec PushRecord) error {
	var registeredAt string
	if !rec.RegisteredAt.IsZero() {
		registeredAt = strconv.FormatInt(rec.RegisteredAt.UnixMilli(), 10)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.recordKey())
		pipe.HSet(ctx, s.recordKey(),
			fieldClientID, rec.ClientID,
			fieldRegisteredAt, registeredAt,
			fieldAPIBase, rec.APIBase,
		)
		return nil
	})
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// ClearRecord deletes the {prefix}:push hash.
func (s *RedisStore) ClearRecord(ctx context.Context) error {
	if err := s.client.Del(ctx, s.recordKey()).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
