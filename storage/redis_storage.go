package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chainhr/payportal/config"
	"github.com/chainhr/payportal/internal/types"
)

const paymentLockTTL = 15 * time.Minute

type RedisStorage struct {
	cfg    config.Config
	client *redis.Client
}

func NewRedisStorage(cfg config.Config) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	status := client.Ping(context.Background())
	if status.Err() != nil {
		return nil, status.Err()
	}
	return &RedisStorage{
		cfg:    cfg,
		client: client,
	}, nil
}

func (r *RedisStorage) SetSession(ctx context.Context, session *types.Session, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("fail to serialize session to json, err: %w", err)
	}
	return r.client.Set(ctx, session.Key(), string(sessionJSON), ttl).Err()
}

// GetSession returns the session stored under the given id.
func (r *RedisStorage) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sessionJSON, err := r.client.Get(ctx, fmt.Sprintf("session-%s", sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("fail to get session, err: %w", err)
	}
	var session types.Session
	if err := json.Unmarshal([]byte(sessionJSON), &session); err != nil {
		return nil, fmt.Errorf("fail to deserialize session, err: %w", err)
	}
	return &session, nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.client.Del(ctx, fmt.Sprintf("session-%s", sessionID)).Err()
}

// AcquirePaymentLock takes the single-flight lock for a payroll. The TTL
// bounds how long a crashed flow can block later attempts.
func (r *RedisStorage) AcquirePaymentLock(ctx context.Context, payrollID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return r.client.SetNX(ctx, paymentLockKey(payrollID), time.Now().UTC().Format(time.RFC3339), paymentLockTTL).Result()
}

func (r *RedisStorage) ReleasePaymentLock(ctx context.Context, payrollID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.client.Del(ctx, paymentLockKey(payrollID)).Err()
}

func paymentLockKey(payrollID int64) string {
	return fmt.Sprintf("payment-lock-%d", payrollID)
}

func (r *RedisStorage) Set(ctx context.Context, key string, value string, expiry time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.client.Set(ctx, key, value, expiry).Err()
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return r.client.Get(ctx, key).Result()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
