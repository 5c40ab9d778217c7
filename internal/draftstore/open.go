package draftstore

import (
	"context"
	"fmt"

	"github.com/Skufu/PulseNet/internal/intake"
)

const (
	KindMemory   = "memory"
	KindFile     = "file"
	KindPostgres = "postgres"
	KindRedis    = "redis"
)

type Config struct {
	Kind        string
	FilePath    string
	DatabaseURL string
	MaxConns    int32
	MinConns    int32
	RedisURL    string
}

type Store interface {
	intake.Persister
}

// HealthChecker is implemented by stores that can be pinged for readiness.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Open builds the configured store. The returned func releases whatever
// connection backs it.
func Open(ctx context.Context, cfg Config) (Store, func(), error) {
	noop := func() {}

	switch cfg.Kind {
	case KindMemory, "":
		return NewMemory(), noop, nil

	case KindFile:
		f, err := NewFile(cfg.FilePath)
		if err != nil {
			return nil, nil, err
		}
		return f, noop, nil

	case KindPostgres:
		pool, err := Connect(ctx, cfg.DatabaseURL, cfg.MaxConns, cfg.MinConns)
		if err != nil {
			return nil, nil, err
		}
		store := NewPostgres(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	case KindRedis:
		client, err := ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return NewRedis(client), func() { _ = client.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown draft store %q", cfg.Kind)
}
