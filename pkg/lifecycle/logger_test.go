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

package lifecycle

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/otelgate/pkg/logger"
)

func TestInitializeLogger(t *testing.T) {
	require.NoError(t, InitializeLogger(nil))
	require.NoError(t, InitializeLogger(&logger.Config{Level: "warn"}))
	assert.Equal(t, zerolog.WarnLevel, logger.GetLogger().GetLevel())

	err := InitializeLogger(&logger.Config{Level: "shouting"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize logger")
}

func TestCreateLogger(t *testing.T) {
	log, err := CreateLogger(&logger.Config{Level: "debug"})
	require.NoError(t, err)
	assert.True(t, log.Debug().Enabled())

	_, err = CreateLogger(&logger.Config{Level: "shouting"})
	assert.Error(t, err)
}

func TestCreateComponentLogger(t *testing.T) {
	log, err := CreateComponentLogger("ingest", &logger.Config{Level: "info"})
	require.NoError(t, err)
	assert.True(t, log.Info().Enabled())
	assert.False(t, log.Debug().Enabled())
}

func TestLoggerImplLevelSwitches(t *testing.T) {
	impl, err := NewLoggerImpl(&logger.Config{Level: "info", Output: "stderr"})
	require.NoError(t, err)

	impl.SetDebug(true)
	assert.True(t, impl.Debug().Enabled())

	impl.SetDebug(false)
	assert.False(t, impl.Debug().Enabled())

	impl.SetLevel(zerolog.ErrorLevel)
	assert.False(t, impl.Warn().Enabled())
	assert.True(t, impl.Error().Enabled())
}
