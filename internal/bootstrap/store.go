package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scopewise/estimation-backend/config"
	"github.com/scopewise/estimation-backend/internal/storage"
	"github.com/scopewise/estimation-backend/internal/storage/firestoredb"
	"github.com/scopewise/estimation-backend/internal/storage/memory"
	"github.com/scopewise/estimation-backend/internal/storage/postgres"
)

// OpenStore builds the record store selected by STORE_DRIVER. The returned
// func releases its connections.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.New(), func() {}, nil

	case config.StorePostgres:
		db, closeDB, err := OpenDB(ctx, DBOptions{
			DSN:       cfg.Database.DSN,
			ConnectTO: cfg.Database.ConnectTimeout,
			PingTO:    cfg.Database.PingTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		store := postgres.New(db)
		if err := store.Migrate(ctx); err != nil {
			closeDB()
			return nil, nil, err
		}
		logger.Info("connected to postgres store")
		return store, closeDB, nil

	case config.StoreFirestore:
		client, err := OpenFirestore(ctx, &cfg.Firebase)
		if err != nil {
			return nil, nil, err
		}
		store := firestoredb.New(client)
		logger.Info("connected to firestore store", "project_id", cfg.Firebase.ProjectID)
		return store, func() { _ = store.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
