package securestore

import (
	"context"
	"fmt"
	"log/slog"

	"eduportal/internal/config"
	"eduportal/internal/database"
)

// Open connects to the configured database, applies migrations and returns
// the encrypted slot store backed by it. The caller closes the database.
func Open(ctx context.Context, cfg *config.Config) (*Encrypted, *database.DB, error) {
	key, err := LoadOrCreateMasterKey(cfg.MasterKeyHex, cfg.MasterKeyPath)
	if err != nil {
		return nil, nil, err
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database connection established", "type", cfg.DatabaseType)

	if err := db.RunMigrations(ctx, cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	store, err := NewEncrypted(NewSQLStore(db), key)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}
