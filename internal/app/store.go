// Package app holds the wiring shared by the API server and the ingest CLI:
// logger construction and record store selection.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/xinlong-d2/signup-admin/internal/config"
	"github.com/xinlong-d2/signup-admin/internal/platform/clock"
	"github.com/xinlong-d2/signup-admin/internal/repo"
	"github.com/xinlong-d2/signup-admin/internal/repo/memstore"
	"github.com/xinlong-d2/signup-admin/internal/repo/mongostore"
	"github.com/xinlong-d2/signup-admin/migrations"
)

// closeTimeout bounds how long closing a store may take.
const closeTimeout = 5 * time.Second

// Store is an opened record store: both collections plus a way to release
// whatever connection backs them.
type Store struct {
	Driver        string
	Registrants   repo.RegistrantRepo
	Registrations repo.RegistrationRepo

	close func(ctx context.Context)
}

// Close releases the store's connections. Safe to call on a memory store.
func (s *Store) Close() {
	if s.close == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	s.close(ctx)
}

// NewLogger returns a JSON slog.Logger writing to stdout at the given level.
// Unknown levels fall back to info.
func NewLogger(level string) *slog.Logger {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// OpenStore connects to the store cfg.StoreDriver names. For Postgres the
// connection is verified and, when cfg.MigrateOnStart is set, pending
// migrations are applied first.
func OpenStore(ctx context.Context, cfg config.Config, clk clock.Clock, log *slog.Logger) (*Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, log)

	case config.DriverMongo:
		ms, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, clk)
		if err != nil {
			return nil, fmt.Errorf("app.OpenStore: %w", err)
		}
		log.Info("mongodb connection established", "database", cfg.MongoDatabase)
		return &Store{
			Driver:        config.DriverMongo,
			Registrants:   ms.Registrants(),
			Registrations: ms.Registrations(),
			close: func(ctx context.Context) {
				if err := ms.Close(ctx); err != nil {
					log.Warn("closing mongodb", "error", err)
				}
			},
		}, nil

	case config.DriverMemory:
		mem := memstore.New(clk)
		log.Warn("using in-memory store; data is lost on exit")
		return &Store{
			Driver:        config.DriverMemory,
			Registrants:   mem.Registrants(),
			Registrations: mem.Registrations(),
		}, nil
	}
	return nil, fmt.Errorf("app.OpenStore: unknown store driver %q", cfg.StoreDriver)
}

func openPostgres(ctx context.Context, cfg config.Config, log *slog.Logger) (*Store, error) {
	// pgxpool.New does not open connections immediately; the ping does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("app.OpenStore: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("app.OpenStore: ping: %w", err)
	}
	log.Info("database connection established")

	if cfg.MigrateOnStart {
		// goose works on database/sql; borrow the pool through the pgx adapter.
		db := stdlib.OpenDBFromPool(pool)
		n, err := migrations.Up(ctx, db)
		db.Close()
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("app.OpenStore: %w", err)
		}
		log.Info("migrations applied", "count", n)
	}

	return &Store{
		Driver:        config.DriverPostgres,
		Registrants:   repo.NewRegistrantRepo(pool),
		Registrations: repo.NewRegistrationRepo(pool),
		close:         func(context.Context) { pool.Close() },
	}, nil
}
