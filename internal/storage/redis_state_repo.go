package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStateRepo хранит состояние двойника в Redis для быстрого восстановления.
type RedisStateRepo struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// RedisStateConfig содержит настройки подключения к Redis
type RedisStateConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни снимка (0 — без истечения)
}

// DefaultRedisStateConfig возвращает конфигурацию по умолчанию
func DefaultRedisStateConfig() *RedisStateConfig {
	return &RedisStateConfig{
		Addr:      "localhost:6379",
		Password:  "",
		DB:        0,
		KeyPrefix: "twin:",
		TTL:       0,
	}
}

// NewRedisStateRepo создаёт Redis репозиторий состояния двойника
func NewRedisStateRepo(config *RedisStateConfig) (*RedisStateRepo, error) {
	if config == nil {
		config = DefaultRedisStateConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	// Проверяем подключение
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStateRepo{
		client: client,
		key:    config.KeyPrefix + "state",
		ttl:    config.TTL,
	}, nil
}

// Save сериализует снимок в JSON и сохраняет по единому ключу.
func (r *RedisStateRepo) Save(ctx context.Context, state *TwinState) error {
	if state == nil {
		return fmt.Errorf("redis state repo: nil состояние")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("redis state repo: ошибка сериализации: %w", err)
	}

	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis state repo: ошибка сохранения: %w", err)
	}
	return nil
}

// Load читает и десериализует снимок состояния.
func (r *RedisStateRepo) Load(ctx context.Context) (*TwinState, bool, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis state repo: ошибка загрузки: %w", err)
	}

	var state TwinState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false, fmt.Errorf("redis state repo: ошибка десериализации: %w", err)
	}
	return &state, true, nil
}

// Delete удаляет сохранённый снимок.
func (r *RedisStateRepo) Delete(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

// Close закрывает соединение с Redis.
func (r *RedisStateRepo) Close() error {
	return r.client.Close()
}
