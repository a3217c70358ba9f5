package storage

import (
	"context"
	"fmt"
	"time"
)

// Store — долговременное key/value хранилище состояния дедупликации.
//
// Транзакций между ключами нет: согласованность нескольких ключей —
// ответственность вызывающего (ProcessTracker).
type Store interface {
	// Get возвращает значение ключа или ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Put записывает значение. ttl <= 0 — без срока жизни.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Has проверяет наличие ключа.
	Has(ctx context.Context, key string) (bool, error)

	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error

	// Close освобождает соединения.
	Close() error
}

// Backend names.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config — параметры подключения к хранилищу.
type Config struct {
	// Backend — redis, postgres, mongo или memory.
	Backend string

	// Host / Port / DB — для redis (DB — номер базы).
	Host string
	Port int
	DB   int

	// Password — пароль redis (опционально).
	Password string

	// URL — DSN для postgres и mongo.
	URL string

	// Database — имя базы mongo.
	Database string
}

// Open открывает хранилище выбранного backend и проверяет соединение.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Backend {
	case BackendMemory:
		store = NewMemoryStore()
	case BackendRedis, "":
		store = NewRedisStore(cfg)
	case BackendPostgres:
		store, err = NewPostgresStore(ctx, cfg.URL)
	case BackendMongo:
		store, err = NewMongoStore(ctx, cfg.URL, cfg.Database)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
