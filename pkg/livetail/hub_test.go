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

package livetail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/otelgate/pkg/models"
)

func row(service string, signal models.Signal, body string) models.Row {
	return models.Row{
		"_signal":      string(signal),
		"service_name": service,
		"body":         body,
	}
}

func recvRow(t *testing.T, sub *Subscription) models.Row {
	t.Helper()

	select {
	case r, ok := <-sub.Records():
		require.True(t, ok, "subscription channel closed")
		return r
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for row")
		return nil
	}
}

func TestPublishDeliversInOrder(t *testing.T) {
	hub := NewHub(8, nil)

	sub, err := hub.Subscribe("checkout", models.SignalLogs)
	require.NoError(t, err)
	defer sub.Close()

	hub.Publish([]models.Row{
		row("checkout", models.SignalLogs, "r1"),
		row("checkout", models.SignalLogs, "r2"),
	})

	assert.Equal(t, "r1", recvRow(t, sub)["body"])
	assert.Equal(t, "r2", recvRow(t, sub)["body"])
}

func TestSubscribeDoesNotReplayEarlierRows(t *testing.T) {
	hub := NewHub(8, nil)

	hub.Publish([]models.Row{row("checkout", models.SignalLogs, "before")})

	sub, err := hub.Subscribe("checkout", models.SignalLogs)
	require.NoError(t, err)
	defer sub.Close()

	hub.Publish([]models.Row{row("checkout", models.SignalLogs, "after")})

	assert.Equal(t, "after", recvRow(t, sub)["body"])

	select {
	case r := <-sub.Records():
		t.Fatalf("unexpected replayed row: %v", r)
	default:
	}
}

func TestPublishFiltersServiceAndSignal(t *testing.T) {
	hub := NewHub(8, nil)

	sub, err := hub.Subscribe("checkout", models.SignalLogs)
	require.NoError(t, err)
	defer sub.Close()

	hub.Publish([]models.Row{
		row("billing", models.SignalLogs, "wrong service"),
		row("checkout", models.SignalSpans, "wrong signal"),
		row("checkout", models.SignalLogs, "match"),
	})

	assert.Equal(t, "match", recvRow(t, sub)["body"])

	select {
	case r := <-sub.Records():
		t.Fatalf("unexpected row: %v", r)
	default:
	}
}

func TestSubscribeRejectsMetricSignals(t *testing.T) {
	hub := NewHub(8, nil)

	_, err := hub.Subscribe("checkout", models.SignalGauge)
	assert.ErrorIs(t, err, ErrInvalidSignal)

	_, err = hub.Subscribe("checkout", models.SignalSum)
	assert.ErrorIs(t, err, ErrInvalidSignal)
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	hub := NewHub(2, nil)

	slow, err := hub.Subscribe("checkout", models.SignalLogs)
	require.NoError(t, err)

	fast, err := hub.Subscribe("checkout", models.SignalLogs)
	require.NoError(t, err)
	defer fast.Close()

	// Fill the slow subscriber's buffer, then overflow it. The fast
	// subscriber drains as it goes.
	for i := 0; i < 3; i++ {
		hub.Publish([]models.Row{row("checkout", models.SignalLogs, "r")})
		recvRow(t, fast)
	}

	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		t.Fatal("slow subscriber was not dropped")
	}

	assert.True(t, slow.Dropped())
	assert.Equal(t, 1, hub.SubscriberCount())

	// Buffered rows remain readable until the closed channel drains.
	assert.Equal(t, "r", recvRow(t, slow)["body"])
	assert.Equal(t, "r", recvRow(t, slow)["body"])

	_, ok := <-slow.Records()
	assert.False(t, ok)
}

func TestCloseIsPromptAndIdempotent(t *testing.T) {
	hub := NewHub(8, nil)

	sub, err := hub.Subscribe("checkout", models.SignalLogs)
	require.NoError(t, err)

	sub.Close()
	sub.Close()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("close did not complete")
	}

	assert.False(t, sub.Dropped())
	assert.Equal(t, 0, hub.SubscriberCount())

	// Publishing after close must not panic or deliver.
	hub.Publish([]models.Row{row("checkout", models.SignalLogs, "late")})
}

func TestSpansSubscription(t *testing.T) {
	hub := NewHub(8, nil)

	sub, err := hub.Subscribe("checkout", models.SignalSpans)
	require.NoError(t, err)
	defer sub.Close()

	hub.Publish([]models.Row{row("checkout", models.SignalSpans, "span")})
	assert.Equal(t, "span", recvRow(t, sub)["body"])
}
