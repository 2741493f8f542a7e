package service

import (
	"ingestion-gateway/internal/config"
	"ingestion-gateway/internal/database"
	"ingestion-gateway/internal/model"
)

// SettingsFromConfig maps the transfer section onto engine settings.
// Empty load options fall back to the dialect defaults inside the loader.
func SettingsFromConfig(cfg config.TransferConfig) (Settings, error) {
	policy, err := model.ParseJoinPolicy(cfg.JoinPolicy)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		PreviewLimit: cfg.PreviewLimit,
		OutputDir:    cfg.OutputDir,
		JoinPolicy:   policy,
		Load: database.LoadOptions{
			TextType:    cfg.DefaultColumnType,
			Engine:      cfg.TableEngine,
			ColumnTypes: cfg.ColumnTypes,
		},
	}, nil
}
