package data

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"

	"github.com/yola1107/ludo-arbiter/internal/conf"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(NewData, NewRedis, NewSnapshotRepo)

// Data .
type Data struct {
	redis *redis.Client
}

// NewData redis 未配置时快照只保存在进程内
func NewData(c *conf.Data, rdb *redis.Client) (*Data, func(), error) {
	cleanup := func() {
		log.Info("closing the data resources")
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	return &Data{redis: rdb}, cleanup, nil
}

func NewRedis(c *conf.Data) *redis.Client {
	if c == nil || c.Redis == nil || c.Redis.Addr == "" {
		log.Warn("redis not configured, snapshots stay in memory")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:         c.Redis.Addr,
		Password:     c.Redis.Password,
		DB:           c.Redis.DB,
		DialTimeout:  c.Redis.DialTimeout.Duration,
		ReadTimeout:  c.Redis.ReadTimeout.Duration,
		WriteTimeout: c.Redis.WriteTimeout.Duration,
	})
}
