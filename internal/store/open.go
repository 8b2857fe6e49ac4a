package store

import (
	"context"
	"fmt"
	"log"

	"github.com/preetsahil/MP/internal/config"
	"github.com/preetsahil/MP/internal/placement"
)

// Backend is the placement store selected by STORE_BACKEND.
type Backend struct {
	Store   placement.Store
	Healthy func(context.Context) bool
	Close   func() error
}

// Open connects the configured store backend, migrating Postgres or creating
// mongo indexes when MIGRATE_ON_START is set.
func Open(ctx context.Context, cfg config.App) (*Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if cfg.MigrateOnStart {
			if err := db.Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return &Backend{Store: NewPostgresStore(db), Healthy: db.Healthy, Close: db.Close}, nil
	case config.BackendMongo:
		m, err := NewMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			_ = m.Close(context.Background())
			return nil, fmt.Errorf("mongo: %w", err)
		}
		s := NewMongoStore(m)
		if cfg.MigrateOnStart {
			if err := s.EnsureIndexes(ctx); err != nil {
				_ = m.Close(context.Background())
				return nil, err
			}
		}
		return &Backend{
			Store:   s,
			Healthy: m.Healthy,
			Close:   func() error { return m.Close(context.Background()) },
		}, nil
	case config.BackendMemory:
		log.Println("using in-memory store; data is lost on restart")
		return &Backend{
			Store:   placement.NewMemoryStore(),
			Healthy: func(context.Context) bool { return true },
			Close:   func() error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
