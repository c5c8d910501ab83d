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

package logger

import (
	"io"

	"github.com/rs/zerolog"
)

type Logger interface {
	Trace() *zerolog.Event
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	Fatal() *zerolog.Event
	Panic() *zerolog.Event
	With() zerolog.Context
	WithComponent(component string) zerolog.Logger
}

// instanceLogger implements Logger around a dedicated zerolog.Logger.
type instanceLogger struct {
	logger zerolog.Logger
}

func (l *instanceLogger) Trace() *zerolog.Event { return l.logger.Trace() }
func (l *instanceLogger) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *instanceLogger) Info() *zerolog.Event  { return l.logger.Info() }
func (l *instanceLogger) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *instanceLogger) Error() *zerolog.Event { return l.logger.Error() }
func (l *instanceLogger) Fatal() *zerolog.Event { return l.logger.Fatal() }
func (l *instanceLogger) Panic() *zerolog.Event { return l.logger.Panic() }
func (l *instanceLogger) With() zerolog.Context { return l.logger.With() }

func (l *instanceLogger) WithComponent(component string) zerolog.Logger {
	return l.logger.With().Str("component", component).Logger()
}

// NewTestLogger creates a no-op logger for testing that discards all output
func NewTestLogger() Logger {
	nopLogger := zerolog.New(io.Discard).Level(zerolog.Disabled)
	return &instanceLogger{logger: nopLogger}
}
