package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vanshika/txwebhook/internal/config"
	"github.com/vanshika/txwebhook/internal/domain"
	"github.com/vanshika/txwebhook/internal/graph"
)

// Store is the full record store surface shared by the SQL and graph backends.
type Store interface {
	Get(ctx context.Context, id string) (domain.Transaction, bool, error)
	Insert(ctx context.Context, tx domain.Transaction) error
	MarkProcessed(ctx context.Context, id string, at time.Time) (bool, error)
	ListStale(ctx context.Context, before time.Time, limit int) ([]string, error)
	Ping(ctx context.Context) error
}

// CloseFunc releases whatever Open acquired.
type CloseFunc func(ctx context.Context) error

// Open connects the backend selected by cfg.Store.Driver and bootstraps its
// schema.
func Open(ctx context.Context, logger *slog.Logger, cfg config.Config) (Store, CloseFunc, error) {
	switch cfg.Store.Driver {
	case config.DriverNeo4j:
		client, err := graph.NewNeo4jClient(ctx, graph.Options{
			URI:            cfg.Graph.URI,
			Database:       cfg.Graph.Database,
			Username:       cfg.Graph.Username,
			Password:       cfg.Graph.Password,
			MaxConnections: cfg.Graph.MaxConnections,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create graph client: %w", err)
		}
		repo := NewGraph(client)
		if err := repo.Migrate(ctx); err != nil {
			_ = client.Close(context.Background())
			return nil, nil, err
		}
		logger.Info("record store ready", "driver", cfg.Store.Driver, "uri", cfg.Graph.URI)
		return repo, client.Close, nil
	default:
		dialect, err := DialectFor(cfg.Store.Driver)
		if err != nil {
			return nil, nil, err
		}
		repo, err := OpenSQL(ctx, dialect, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("record store ready", "driver", cfg.Store.Driver)
		return repo, func(context.Context) error { return repo.Close() }, nil
	}
}
