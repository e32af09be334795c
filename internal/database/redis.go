package database

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InitRedis returns nil when Redis is unreachable. Callers treat a nil client
// as "no cache".
func InitRedis(ctx context.Context, log *zap.Logger) *redis.Client {
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	addr := viper.GetString("redis.host") + ":" + viper.GetString("redis.port")
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis connection failed, continuing without redis", zap.String("addr", addr), zap.Error(err))
		rdb.Close()
		return nil
	}

	log.Info("redis connection established", zap.String("addr", addr))
	return rdb
}
