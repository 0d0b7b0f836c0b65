package main

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"

	"papermind-backend/internal/shared/config"
	"papermind-backend/internal/shared/storage/db"
	"papermind-backend/internal/shared/telemetry"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     config.Config
	configErr  error

	openDB func(ctx context.Context, databaseURL string) (*sql.DB, error)
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		openDB: func(ctx context.Context, databaseURL string) (*sql.DB, error) {
			return db.Connect(ctx, databaseURL, db.OptionsFromEnv(db.DefaultCLIOptions()))
		},
	}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.LoadFile(path)
		if err != nil {
			c.configErr = err
			return
		}
		telemetry.Configure(cfg.Env, cfg.LogLevel)
		c.config = cfg
	})
	return c.config, c.configErr
}

// withDB opens the configured database for one command.
func (c *commandContext) withDB(ctx context.Context, fn func(*sql.DB) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required")
	}
	database, err := c.openDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(database)
}
