package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps each session as JSON under "{prefix}:session:{id}" and
// indexes ids per shop in the set "{prefix}:shop:{shop}".
type RedisStorage struct {
	client *redis.Client
	prefix string
}

func NewRedisStorage(ctx context.Context, url string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("session: redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("session: redis ping failed: %w", err)
	}
	return &RedisStorage{client: client, prefix: "shopprotect"}, nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}

func (r *RedisStorage) sessionKey(id string) string { return r.prefix + ":session:" + id }
func (r *RedisStorage) shopKey(shop string) string  { return r.prefix + ":shop:" + shop }

func (r *RedisStorage) StoreSession(ctx context.Context, s Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.sessionKey(s.ID), b, 0)
		p.SAdd(ctx, r.shopKey(s.Shop), s.ID)
		return nil
	})
	return err
}

func (r *RedisStorage) LoadSession(ctx context.Context, id string) (Session, error) {
	b, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("session: decode %s: %w", id, err)
	}
	return s, nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, id string) error {
	return r.DeleteSessions(ctx, []string{id})
}

func (r *RedisStorage) DeleteSessions(ctx context.Context, ids []string) error {
	for _, id := range ids {
		s, err := r.LoadSession(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if _, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, r.sessionKey(id))
			p.SRem(ctx, r.shopKey(s.Shop), id)
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func (r *RedisStorage) FindSessionsByShop(ctx context.Context, shop string) ([]Session, error) {
	ids, err := r.client.SMembers(ctx, r.shopKey(shop)).Result()
	if err != nil {
		return nil, err
	}
	var out []Session
	for _, id := range ids {
		s, err := r.LoadSession(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Stale index entry.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
