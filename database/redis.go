package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"backend_crb/config"

	"github.com/go-redis/redis/v8"
)

var Redis *redis.Client
var Ctx = context.Background()

// InitRedis inicializa a conexão com o Redis
func InitRedis() error {
	cfg := config.GetConfig()

	Redis = redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := Redis.Ping(Ctx).Err(); err != nil {
		Redis = nil
		return fmt.Errorf("não foi possível conectar ao Redis: %w", err)
	}

	log.Println("✅ Conectado ao Redis com sucesso")
	return nil
}

// GetRedis retorna o cliente Redis
func GetRedis() *redis.Client {
	return Redis
}

// CacheSetJSON serializa e armazena um valor no cache com TTL
func CacheSetJSON(key string, value interface{}, ttl time.Duration) error {
	if Redis == nil {
		return redis.Nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("erro ao serializar JSON: %w", err)
	}
	return Redis.Set(Ctx, key, string(data), ttl).Err()
}

// CacheGetJSON busca e desserializa um valor do cache
func CacheGetJSON(key string, dest interface{}) error {
	if Redis == nil {
		return redis.Nil
	}
	data, err := Redis.Get(Ctx, key).Result()
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("erro ao desserializar JSON: %w", err)
	}
	return nil
}

// CacheDel remove chaves do cache
func CacheDel(keys ...string) error {
	if Redis == nil || len(keys) == 0 {
		return nil
	}
	return Redis.Del(Ctx, keys...).Err()
}
