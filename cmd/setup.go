package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/freshlist/internal/shared"
	"github.com/desertthunder/freshlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, then initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); os.IsNotExist(err) {
			r.logger.Info("config file not found, creating from template", "path", r.configPath)
			if err := shared.CreateConfigFile(r.configPath); err != nil {
				return err
			}

			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return err
			}
			config.ApplyEnv(os.Getenv)
			r.config = config
			r.writePlain("%s\n", ui.Success("✓ Config file created: "+r.configPath))
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if err := r.openStore(ctx); err != nil {
		return err
	}

	version, err := shared.SchemaVersion(ctx, r.db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("%s\n", ui.Success(fmt.Sprintf("✓ Database ready: %s (schema version %d)", r.config.Database.Path, version)))
	if r.config.Credentials.Spotify.Token() == nil {
		r.writePlainln("Next steps:")
		r.writePlain("1. Set credentials.spotify.client_id and client_secret in %s\n", r.configPath)
		r.writePlain("2. Run 'freshlist auth' to authorize playlist access\n")
	}
	return nil
}
