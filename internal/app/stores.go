package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/config"
	"github.com/Freeeeeet/studio_scheduler/internal/repository"
	"github.com/Freeeeeet/studio_scheduler/internal/repository/inmem"
	mongorepo "github.com/Freeeeeet/studio_scheduler/internal/repository/mongo"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Stores are the repositories selected by SESSION_STORE. Pool is nil in
// memory mode.
type Stores struct {
	Users    service.UserStore
	Sessions service.SessionStore
	Pool     *pgxpool.Pool

	closers []func(context.Context) error
}

// OpenStores connects the configured backends. Postgres is migrated before
// use; users always live in Postgres unless the whole process runs in memory.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	loc := cfg.Location()

	if cfg.SessionStore == config.StoreMemory {
		logger.Warn("Using in-memory store, data is lost on restart")
		db := inmem.Open()
		return &Stores{
			Users:    inmem.NewUserRepository(db),
			Sessions: inmem.NewSessionRepository(db),
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Connected to database")

	st := &Stores{
		Users: repository.NewUserRepository(pool),
		Pool:  pool,
		closers: []func(context.Context) error{func(context.Context) error {
			pool.Close()
			return nil
		}},
	}

	migrator, err := NewMigrator(pool, logger)
	if err != nil {
		st.Close(ctx)
		return nil, err
	}
	defer migrator.Close()
	if err := migrator.Run(ctx); err != nil {
		st.Close(ctx)
		return nil, err
	}

	switch cfg.SessionStore {
	case config.StoreMongo:
		sessions, disconnect, err := openMongo(ctx, cfg, loc)
		if err != nil {
			st.Close(ctx)
			return nil, err
		}
		st.closers = append(st.closers, disconnect)
		st.Sessions = sessions
		logger.Info("Sessions stored in MongoDB", zap.String("database", cfg.MongoDatabase))
	default:
		st.Sessions = repository.NewSessionRepository(pool, loc)
	}
	return st, nil
}

func openMongo(ctx context.Context, cfg *config.Config, loc *time.Location) (*mongorepo.SessionRepository, func(context.Context) error, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	repo := mongorepo.NewSessionRepository(client.Database(cfg.MongoDatabase), loc)
	if err := repo.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	return repo, client.Disconnect, nil
}

// Close releases connections in reverse order of opening.
func (s *Stores) Close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i](ctx)
	}
	s.closers = nil
}
