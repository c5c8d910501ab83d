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

package models

import "github.com/carverauto/otelgate/pkg/logger"

const (
	// DefaultRetentionSeconds keeps an hour of telemetry queryable.
	DefaultRetentionSeconds int64 = 3600

	// MaxRetentionSeconds caps the hot cache window at seven days.
	MaxRetentionSeconds int64 = 7 * 24 * 3600

	// DefaultStatsRetentionMinutes keeps an hour of per-minute service
	// aggregates.
	DefaultStatsRetentionMinutes int64 = 60

	// MaxStatsRetentionMinutes caps the aggregate window at seven days.
	MaxStatsRetentionMinutes int64 = 7 * 24 * 60
)

// GatewayConfig is the top-level configuration for the otelgate service.
type GatewayConfig struct {
	ListenAddr string `json:"listen_addr"`

	// DefaultEnvironment is used when a request carries no X-Environment
	// header. Each environment owns an isolated hot cache store.
	DefaultEnvironment string `json:"default_environment"`

	// DataDir holds the per-environment SQLite files. Empty means
	// in-memory stores (tests, local development).
	DataDir string `json:"data_dir"`

	// RetentionSeconds is the hot cache retention window. Clamped to
	// MaxRetentionSeconds.
	RetentionSeconds int64 `json:"retention_seconds"`

	// MaxCachedRows caps rows per table per environment as a memory/disk
	// bound; eviction is otherwise purely time-driven.
	MaxCachedRows int64 `json:"max_cached_rows"`

	// LiveTailBuffer is the per-subscriber outbound queue length. A
	// subscriber that falls this far behind is disconnected.
	LiveTailBuffer int `json:"live_tail_buffer"`

	// StatsRetentionMinutes is how long per-service minute aggregates
	// stay queryable. Clamped to MaxStatsRetentionMinutes.
	StatsRetentionMinutes int64 `json:"stats_retention_minutes"`

	// DeliveryStreams maps table names (logs, traces, gauge, sum) to
	// Firehose delivery stream names. Empty disables delivery.
	DeliveryStreams map[string]string `json:"delivery_streams"`

	CORS    CORSConfig     `json:"cors"`
	Logging *logger.Config `json:"logging"`
}

// Defaults fills unset fields with production defaults.
func (c *GatewayConfig) Defaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}

	if c.DefaultEnvironment == "" {
		c.DefaultEnvironment = "default"
	}

	if c.RetentionSeconds <= 0 {
		c.RetentionSeconds = DefaultRetentionSeconds
	}

	if c.RetentionSeconds > MaxRetentionSeconds {
		c.RetentionSeconds = MaxRetentionSeconds
	}

	if c.MaxCachedRows <= 0 {
		c.MaxCachedRows = 1_000_000
	}

	if c.LiveTailBuffer <= 0 {
		c.LiveTailBuffer = 64
	}

	if c.StatsRetentionMinutes <= 0 {
		c.StatsRetentionMinutes = DefaultStatsRetentionMinutes
	}

	if c.StatsRetentionMinutes > MaxStatsRetentionMinutes {
		c.StatsRetentionMinutes = MaxStatsRetentionMinutes
	}
}
