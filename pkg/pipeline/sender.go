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

// Package pipeline hands rows grouped by table to the durable delivery
// stream, with bounded batches, retries and partial-failure requeue.
package pipeline

import (
	"context"

	"github.com/carverauto/otelgate/pkg/models"
)

// Sender delivers grouped rows downstream.
type Sender interface {
	// SendAll delivers every table's rows, accumulating per-table
	// outcomes. It does not stop at the first failing table.
	SendAll(ctx context.Context, grouped map[string][]models.Row) SendResult
}

// SendResult accumulates per-table delivery outcomes.
type SendResult struct {
	// Succeeded counts delivered records per table.
	Succeeded map[string]int

	// Failed holds the final error per table that could not be
	// delivered (fully or partially).
	Failed map[string]error
}

// NewSendResult returns an empty result.
func NewSendResult() SendResult {
	return SendResult{
		Succeeded: make(map[string]int),
		Failed:    make(map[string]error),
	}
}

// OK reports whether every table delivered cleanly.
func (r SendResult) OK() bool {
	return len(r.Failed) == 0
}

// NopSender discards rows; used when no delivery streams are configured.
type NopSender struct{}

func (NopSender) SendAll(_ context.Context, grouped map[string][]models.Row) SendResult {
	result := NewSendResult()

	for table, rows := range grouped {
		result.Succeeded[table] = len(rows)
	}

	return result
}
