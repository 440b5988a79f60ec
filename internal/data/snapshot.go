package data

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yola1107/ludo-arbiter/internal/biz/authority"
	"github.com/yola1107/ludo-arbiter/internal/conf"
	"github.com/yola1107/ludo-arbiter/internal/model"
)

const defaultKeyPrefix = "ludo:match:"

// NewSnapshotRepo 有 redis 时写 hash, 否则使用内存存储
func NewSnapshotRepo(data *Data, c *conf.Data) authority.SnapshotRepo {
	if data == nil || data.redis == nil {
		return NewMemorySnapshotRepo()
	}
	prefix, ttl := defaultKeyPrefix, time.Duration(0)
	if c != nil && c.Redis != nil {
		if c.Redis.KeyPrefix != "" {
			prefix = c.Redis.KeyPrefix
		}
		ttl = c.Redis.TTL.Duration
	}
	return &snapshotRepo{rdb: data.redis, prefix: prefix, ttl: ttl}
}

// snapshotRepo 每局一个 hash, 字段即快照的 key
type snapshotRepo struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func (r *snapshotRepo) key(matchID string) string {
	return r.prefix + matchID
}

func (r *snapshotRepo) Save(ctx context.Context, matchID string, snap *model.Snapshot) error {
	fields := snap.Fields()
	values := make(map[string]any, len(fields))
	for k, v := range fields {
		values[k] = v
	}

	key := r.key(matchID)
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, values)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

func (r *snapshotRepo) Load(ctx context.Context, matchID string) (*model.Snapshot, error) {
	key := r.key(matchID)
	fields, err := r.rdb.HGetAll(ctx, key).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(fields) == 0) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return model.SnapshotFromFields(fields)
}

func (r *snapshotRepo) Delete(ctx context.Context, matchID string) error {
	if err := r.rdb.Del(ctx, r.key(matchID)).Err(); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", r.key(matchID), err)
	}
	return nil
}

// MemorySnapshotRepo 进程内存储, 与 redis 使用相同的字段编码
type MemorySnapshotRepo struct {
	mu     sync.RWMutex
	fields map[string]map[string]string
}

func NewMemorySnapshotRepo() *MemorySnapshotRepo {
	return &MemorySnapshotRepo{fields: make(map[string]map[string]string)}
}

func (r *MemorySnapshotRepo) Save(_ context.Context, matchID string, snap *model.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[matchID] = snap.Fields()
	return nil
}

func (r *MemorySnapshotRepo) Load(_ context.Context, matchID string) (*model.Snapshot, error) {
	r.mu.RLock()
	fields, ok := r.fields[matchID]
	fields = maps.Clone(fields)
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return model.SnapshotFromFields(fields)
}

func (r *MemorySnapshotRepo) Delete(_ context.Context, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.fields, matchID)
	return nil
}
