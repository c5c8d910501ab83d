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

// Package livetail fans freshly ingested rows out to streaming
// subscribers. Delivery is fire-and-forget: there is no replay, and a
// subscriber that cannot keep up is dropped rather than allowed to stall
// the ingest path or other subscribers.
package livetail

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/carverauto/otelgate/pkg/logger"
	"github.com/carverauto/otelgate/pkg/models"
)

// DefaultBuffer is the per-subscriber queue length when none is given.
const DefaultBuffer = 64

// ErrInvalidSignal rejects live tail subscriptions for metric signals.
var ErrInvalidSignal = errors.New("live tail supports logs and traces only")

// Hub routes published rows to subscriptions matching on service and
// signal.
type Hub struct {
	buffer int
	log    logger.Logger

	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription
}

// NewHub builds a hub with the given per-subscriber buffer size.
func NewHub(buffer int, log logger.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Hub{
		buffer: buffer,
		log:    log,
		subs:   make(map[uuid.UUID]*Subscription),
	}
}

// Subscription is one live tail consumer. Records arrive on Records();
// Done() closes when the subscription ends, either by Close or by the hub
// dropping a slow consumer.
type Subscription struct {
	ID      uuid.UUID
	Service string
	Signal  models.Signal

	hub  *Hub
	ch   chan models.Row
	done chan struct{}

	closeOnce sync.Once
	dropped   bool
}

// Records is the stream of matching rows.
func (s *Subscription) Records() <-chan models.Row { return s.ch }

// Done closes when the subscription is finished.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Dropped reports whether the hub ended the subscription for
// backpressure. Valid once Done is closed.
func (s *Subscription) Dropped() bool { return s.dropped }

// Close unsubscribes promptly. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s, false)
}

// Subscribe registers a consumer for one service and signal. Only log and
// span signals are streamable.
func (h *Hub) Subscribe(service string, signal models.Signal) (*Subscription, error) {
	if signal != models.SignalLogs && signal != models.SignalSpans {
		return nil, ErrInvalidSignal
	}

	sub := &Subscription{
		ID:      uuid.New(),
		Service: service,
		Signal:  signal,
		hub:     h,
		ch:      make(chan models.Row, h.buffer),
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()

	h.log.Debug().Str("subscription_id", sub.ID.String()).
		Str("service", service).Str("signal", string(signal)).
		Msg("Live tail subscription added")

	return sub, nil
}

// Publish fans rows out to matching subscriptions. It never blocks: a
// subscription whose buffer is full is dropped.
func (h *Hub) Publish(rows []models.Row) {
	var slow []*Subscription

	h.mu.RLock()

subscribers:
	for _, sub := range h.subs {
		for _, row := range rows {
			if row.Signal() != sub.Signal || row.ServiceName() != sub.Service {
				continue
			}

			select {
			case sub.ch <- row:
			default:
				slow = append(slow, sub)
				continue subscribers
			}
		}
	}

	h.mu.RUnlock()

	for _, sub := range slow {
		h.log.Warn().Str("subscription_id", sub.ID.String()).
			Str("service", sub.Service).
			Msg("Dropping slow live tail subscriber")
		h.remove(sub, true)
	}
}

// remove takes the subscription out of the routing table and closes it.
// The channel close is safe because publishes hold the read lock while
// sending, so no send can race the close once the entry is gone.
func (h *Hub) remove(sub *Subscription, dropped bool) {
	h.mu.Lock()
	_, present := h.subs[sub.ID]
	delete(h.subs, sub.ID)
	h.mu.Unlock()

	if !present {
		return
	}

	sub.closeOnce.Do(func() {
		sub.dropped = dropped
		close(sub.done)
		close(sub.ch)
	})
}

// SubscriberCount returns the number of active subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs)
}
