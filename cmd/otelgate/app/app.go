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

// Package app wires the gateway components together and runs the service.
package app

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/firehose"

	"github.com/carverauto/otelgate/pkg/config"
	"github.com/carverauto/otelgate/pkg/core/api"
	"github.com/carverauto/otelgate/pkg/hotcache"
	"github.com/carverauto/otelgate/pkg/lifecycle"
	"github.com/carverauto/otelgate/pkg/livetail"
	"github.com/carverauto/otelgate/pkg/logger"
	"github.com/carverauto/otelgate/pkg/models"
	"github.com/carverauto/otelgate/pkg/pipeline"
	"github.com/carverauto/otelgate/pkg/stats"
)

// Options contains runtime configuration derived from CLI flags.
type Options struct {
	ConfigPath string
	Debug      bool
}

// Run boots the gateway using the provided options.
func Run(ctx context.Context, opts Options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.NewConfig(nil).LoadGatewayConfig(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	// The global logger backs anything that logs through zerolog/log,
	// including third-party code. Component loggers below are standalone.
	if err := lifecycle.InitializeLogger(cfg.Logging); err != nil {
		return err
	}

	if opts.Debug {
		logger.SetDebug(true)
	}

	mainLogger, err := lifecycle.CreateComponentLogger("otelgate", cfg.Logging)
	if err != nil {
		return err
	}

	logger.Info().Str("listen_addr", cfg.ListenAddr).Msg("Gateway configuration loaded")

	manager := hotcache.NewManager(hotcache.Options{
		DataDir:          cfg.DataDir,
		RetentionSeconds: cfg.RetentionSeconds,
		MaxRows:          cfg.MaxCachedRows,
		Logger:           mainLogger,
	})

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	manager.Start(sweepCtx)

	hub := livetail.NewHub(cfg.LiveTailBuffer, mainLogger)

	aggregates := stats.NewAggregator(stats.Options{
		RetentionMinutes: cfg.StatsRetentionMinutes,
		Logger:           mainLogger,
	})

	sender, err := buildSender(ctx, cfg, mainLogger)
	if err != nil {
		cancelSweep()
		return err
	}

	apiServer := api.NewAPIServer(cfg.CORS,
		api.WithCache(manager),
		api.WithHub(hub),
		api.WithSender(sender),
		api.WithStats(aggregates),
		api.WithLogger(mainLogger),
		api.WithDefaultEnvironment(cfg.DefaultEnvironment),
	)

	return lifecycle.RunServer(ctx, &lifecycle.ServerOptions{
		ListenAddr: cfg.ListenAddr,
		Handler:    apiServer.Router(),
		Logger:     mainLogger,
		OnShutdown: []func(context.Context) error{
			func(context.Context) error {
				cancelSweep()
				return manager.Close()
			},
		},
	})
}

// buildSender picks the delivery pipeline: Firehose when streams are
// configured, otherwise a no-op sender that leaves rows in the hot cache
// only.
func buildSender(ctx context.Context, cfg *models.GatewayConfig, log logger.Logger) (pipeline.Sender, error) {
	if len(cfg.DeliveryStreams) == 0 {
		log.Info().Msg("No delivery streams configured, downstream delivery disabled")
		return pipeline.NopSender{}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS configuration: %w", err)
	}

	client := firehose.NewFromConfig(awsCfg)

	log.Info().Int("streams", len(cfg.DeliveryStreams)).Msg("Firehose delivery enabled")

	return pipeline.NewFirehoseSender(client, cfg.DeliveryStreams, pipeline.DefaultRetryConfig(), log), nil
}
