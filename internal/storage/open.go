package storage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/dimitrije/teamboard/internal/config"
	"github.com/dimitrije/teamboard/internal/database"
	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/docstore/memstore"
	"github.com/dimitrije/teamboard/internal/docstore/mongostore"
	"github.com/dimitrije/teamboard/internal/docstore/pgstore"
)

// Open connects the configured document store behind a circuit
// breaker. Change relays run until ctx ends; the returned func releases the
// store.
func Open(ctx context.Context, cfg *config.Config, log *logrus.Logger) (docstore.Gateway, func(), error) {
	var (
		store   docstore.Gateway
		release func()
	)

	switch cfg.Store.Driver {
	case config.StoreMemory:
		mem := memstore.New()
		store, release = mem, mem.Close
		log.Warn("using in-memory store, data is lost on restart")

	case config.StorePostgres:
		db, err := database.New(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		pg := pgstore.New(db, log)
		if cfg.Store.PGNotify {
			go pg.Listen(ctx, db.Raw())
		}
		store = pg
		release = func() {
			pg.Close()
			db.Close()
		}

	case config.StoreMongo:
		client, err := mongostore.Connect(ctx, cfg.Store.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		mongo := mongostore.New(client.Database(cfg.Store.MongoDatabase), log)
		if cfg.Store.MongoWatch {
			go mongo.Watch(ctx)
		}
		store = mongo
		release = func() {
			mongo.Close()
			_ = client.Disconnect(context.Background())
		}

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	log.WithField("driver", cfg.Store.Driver).Info("document store ready")

	return docstore.WithBreaker(store, docstore.BreakerConfig{
		Name:        cfg.Store.Driver,
		MaxFailures: cfg.Breaker.MaxFailures,
		Timeout:     cfg.Breaker.Timeout,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("store circuit breaker changed state")
		},
	}), release, nil
}
