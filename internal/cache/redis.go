// Package cache реализует хранилище данных с временем жизни на Redis.
// Основной потребитель — сессии сверки: поставленная партия живёт
// между HTTP-запросами оператора и исчезает по TTL, если её так и
// не зафиксировали.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maka255-beep/workshop-registry/internal/config"
	"github.com/maka255-beep/workshop-registry/internal/services/reconcile"
)

// Cache оборачивает клиент Redis.
type Cache struct {
	Db *redis.Client
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db}, nil
}

// Get читает значение по ключу; false — ключа нет или он истёк.
func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal([]byte(val), result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет значение с временем жизни.
func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Db.Set(ctx, key, jsonData, expiration).Err()
}

// Invalidate удаляет значение по ключу.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.Db.Del(ctx, key).Err()
}

// BatchStore реализует хранилище сессий сверки поверх Cache.
type BatchStore struct {
	cache *Cache
}

// NewBatchStore создает новый BatchStore.
func NewBatchStore(cache *Cache) *BatchStore {
	return &BatchStore{cache: cache}
}

func batchKey(id string) string {
	return fmt.Sprintf("reconcile:batch:%s", id)
}

// Save сохраняет сессию с временем жизни партии.
func (s *BatchStore) Save(ctx context.Context, session *reconcile.Session, ttl time.Duration) error {
	return s.cache.Set(ctx, batchKey(session.ID), session, ttl)
}

// Get возвращает сессию либо (nil, nil), если её нет или она истекла.
func (s *BatchStore) Get(ctx context.Context, id string) (*reconcile.Session, error) {
	var session reconcile.Session
	found, err := s.cache.Get(ctx, batchKey(id), &session)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &session, nil
}

// Delete удаляет сессию.
func (s *BatchStore) Delete(ctx context.Context, id string) error {
	return s.cache.Invalidate(ctx, batchKey(id))
}
