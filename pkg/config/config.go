/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads service configuration from JSON files with
// environment variable overrides.
package config

import (
	"context"
	"os"

	"github.com/carverauto/otelgate/pkg/logger"
	"github.com/carverauto/otelgate/pkg/models"
)

// Config holds the configuration loading dependencies.
type Config struct {
	loader ConfigLoader
	logger logger.Logger
}

// NewConfig initializes a new Config instance with a default file loader.
// If log is nil, a no-op logger is used.
func NewConfig(log logger.Logger) *Config {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Config{
		loader: &FileConfigLoader{},
		logger: log,
	}
}

// ValidateConfig validates a configuration if it implements Validator.
func ValidateConfig(cfg interface{}) error {
	v, ok := cfg.(Validator)
	if !ok {
		return nil
	}

	return v.Validate()
}

// LoadAndValidate loads a configuration from path and validates it.
func (c *Config) LoadAndValidate(ctx context.Context, path string, cfg interface{}) error {
	if err := c.loader.Load(ctx, path, cfg); err != nil {
		return err
	}

	return ValidateConfig(cfg)
}

// LoadGatewayConfig loads the gateway configuration from path, applies
// environment variable overrides and fills in defaults. An empty path
// yields a pure defaults-plus-environment configuration.
func (c *Config) LoadGatewayConfig(ctx context.Context, path string) (*models.GatewayConfig, error) {
	cfg := &models.GatewayConfig{}

	if path != "" {
		if err := c.LoadAndValidate(ctx, path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	cfg.Defaults()

	c.logger.Info().
		Str("listen_addr", cfg.ListenAddr).
		Str("default_environment", cfg.DefaultEnvironment).
		Int64("retention_seconds", cfg.RetentionSeconds).
		Msg("Loaded gateway configuration")

	return cfg, nil
}

func applyEnvOverrides(cfg *models.GatewayConfig) {
	if v := os.Getenv("OTELGATE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	if v := os.Getenv("OTELGATE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("OTELGATE_DEFAULT_ENVIRONMENT"); v != "" {
		cfg.DefaultEnvironment = v
	}
}
