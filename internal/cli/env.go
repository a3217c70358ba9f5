package cli

import (
	"context"
	"log/slog"

	"github.com/shaiso/dfsbridge/internal/bridge"
	"github.com/shaiso/dfsbridge/internal/config"
	"github.com/shaiso/dfsbridge/internal/storage"
)

// Env — общее окружение команд: путь к конфигурации и, при
// необходимости, заранее открытое хранилище.
type Env struct {
	ConfigPath string

	// Store — хранилище для команд; nil — открыть по конфигурации.
	Store storage.Store

	Logger *slog.Logger

	cfg *config.Config
}

// Config загружает конфигурацию один раз.
func (e *Env) Config() (*config.Config, error) {
	if e.cfg != nil {
		return e.cfg, nil
	}
	cfg, err := config.Load(e.ConfigPath)
	if err != nil {
		return nil, err
	}
	e.cfg = cfg
	return cfg, nil
}

// OpenStore возвращает хранилище и функцию его закрытия. Переданное
// через Env хранилище не закрывается.
func (e *Env) OpenStore(ctx context.Context) (storage.Store, func(), error) {
	if e.Store != nil {
		return e.Store, func() {}, nil
	}
	cfg, err := e.Config()
	if err != nil {
		return nil, nil, err
	}
	store, err := bridge.OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

func (e *Env) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
