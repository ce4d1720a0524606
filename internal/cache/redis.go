package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/emrgen/exploration/internal/model"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	explorationVersionHash = "exploration:version"
	defaultTTL             = time.Hour
)

func explorationKey(id string) string {
	return "exploration:" + id
}

// NewRedisClient connects to redis at addr.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		Protocol: 2,
	})
}

var _ ExplorationCache = (*RedisExplorationCache)(nil)

// RedisExplorationCache keeps explorations as json under exploration:<id>. The
// cached version of every exploration is tracked in a hash so an older read
// never replaces a newer commit.
type RedisExplorationCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisExplorationCache(client *redis.Client, ttl time.Duration) *RedisExplorationCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisExplorationCache{client: client, ttl: ttl}
}

func (r *RedisExplorationCache) GetExploration(ctx context.Context, id string) (*model.Exploration, error) {
	res := r.client.Get(ctx, explorationKey(id))
	if res.Err() != nil {
		if errors.Is(res.Err(), redis.Nil) {
			return nil, nil
		}
		return nil, res.Err()
	}

	buf, err := res.Bytes()
	if err != nil {
		return nil, err
	}

	exp := &model.Exploration{}
	if err := json.Unmarshal(buf, exp); err != nil {
		return nil, err
	}

	return exp, nil
}

func (r *RedisExplorationCache) SetExploration(ctx context.Context, exp *model.Exploration) error {
	marshal, err := json.Marshal(exp)
	if err != nil {
		return err
	}

	key := explorationKey(exp.ID)
	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		cached, err := tx.HGet(ctx, explorationVersionHash, exp.ID).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cached > exp.Version {
			logrus.Debugf("cache holds exploration %s at version %d, skipping version %d", exp.ID, cached, exp.Version)
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if err := p.Set(ctx, key, marshal, r.ttl).Err(); err != nil {
				return err
			}
			return p.HSet(ctx, explorationVersionHash, exp.ID, exp.Version).Err()
		})
		return err
	}, explorationVersionHash)
}

func (r *RedisExplorationCache) DeleteExploration(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if err := p.Del(ctx, explorationKey(id)).Err(); err != nil {
			return err
		}
		return p.HDel(ctx, explorationVersionHash, id).Err()
	})
	return err
}
