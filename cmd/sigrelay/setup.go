package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/newthinker/sigrelay/internal/config"
	"github.com/newthinker/sigrelay/internal/logger"
)

var loadEnvFunc = godotenv.Load

// loadConfig reads the dotenv file if present, then the config file over
// the defaults, and validates the result.
func loadConfig() (*config.Config, error) {
	if envFile != "" {
		if err := loadEnvFunc(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newLogger builds the logger for cfg; the debug flag forces development
// output.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if debug {
		return logger.New(true)
	}
	return logger.ForMode(cfg.Server.Mode)
}
