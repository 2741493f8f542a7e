// Package app assembles the transfer engine from configuration. Both the
// HTTP server and the ingestctl command build on it.
package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"ingestion-gateway/internal/config"
	"ingestion-gateway/internal/database"
	"ingestion-gateway/internal/service"
	"ingestion-gateway/internal/storage"
)

type App struct {
	Config        *config.Config
	Pool          *database.ConnectionPool
	HealthChecker *database.HealthChecker
	Transfers     service.TransferService
	Uploads       *storage.UploadStore
}

// New wires the store pool, the optional archive and the transfer service.
// The output and upload directories are created if missing.
func New(cfg *config.Config) (*App, error) {
	for _, dir := range []string{cfg.Transfer.OutputDir, cfg.Transfer.UploadDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	connector, err := database.NewConnector(cfg.Store)
	if err != nil {
		return nil, err
	}
	pool := database.NewConnectionPool(connector)

	settings, err := service.SettingsFromConfig(cfg.Transfer)
	if err != nil {
		return nil, err
	}

	var archiver storage.Archiver
	if cfg.Storage.ArchiveEnabled {
		minioArchiver, err := storage.NewMinIOArchiver(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		archiver = minioArchiver
		log.Info().Str("endpoint", cfg.Storage.Endpoint).Str("bucket", cfg.Storage.Bucket).Msg("export archiving enabled")
	}

	return &App{
		Config:        cfg,
		Pool:          pool,
		HealthChecker: database.NewHealthChecker(pool),
		Transfers:     service.NewTransferService(pool, settings, archiver),
		Uploads:       storage.NewUploadStore(cfg.Transfer.UploadDir),
	}, nil
}

// Close releases every pooled store connection.
func (a *App) Close() error {
	return a.Pool.CloseAll()
}
