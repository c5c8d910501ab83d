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

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/carverauto/otelgate/pkg/livetail"
	"github.com/carverauto/otelgate/pkg/models"
)

const streamReadLimit = 512

var errUnstreamableSignal = errors.New("signal must be logs or traces")

// StreamMessage is one frame pushed to a live tail client.
type StreamMessage struct {
	Type      string     `json:"type"`
	Service   string     `json:"service,omitempty"`
	Signal    string     `json:"signal,omitempty"`
	Record    models.Row `json:"record,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// handleStream upgrades the connection and forwards matching records as
// they are ingested. Subscribers that cannot keep up receive a final
// "dropped" frame before the connection closes.
func (s *APIServer) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, "Live tail is not configured", http.StatusServiceUnavailable)
		return
	}

	service := r.URL.Query().Get("service")
	if service == "" {
		writeError(w, "Missing required parameter: service", http.StatusBadRequest)
		return
	}

	signal, err := streamSignal(r.URL.Query().Get("signal"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sub, err := s.hub.Subscribe(service, signal)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkWebSocketOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		s.logger.Error().Err(err).Msg("WebSocket upgrade failed")

		return
	}

	defer conn.Close()
	defer sub.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.handleClientMessages(ctx, conn, cancel)

	connected := StreamMessage{
		Type:      "connected",
		Service:   service,
		Signal:    string(signal),
		Timestamp: time.Now(),
	}

	if err := conn.WriteJSON(connected); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to write stream handshake")
		return
	}

	// A closed Records channel still delivers its buffered rows first, so
	// keying the loop on the channel alone both drains and terminates.
	for {
		select {
		case <-ctx.Done():
			return
		case row, ok := <-sub.Records():
			if !ok {
				s.finishStream(conn, sub, service)
				return
			}

			msg := StreamMessage{
				Type:      "record",
				Record:    row,
				Timestamp: time.Now(),
			}

			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug().Err(err).Str("service", service).Msg("Stream client write failed")
				return
			}
		}
	}
}

// finishStream tells the client why the hub ended the subscription.
func (s *APIServer) finishStream(conn *websocket.Conn, sub *livetail.Subscription, service string) {
	if !sub.Dropped() {
		return
	}

	s.logger.Warn().Str("service", service).Msg("Dropping slow live tail subscriber")

	msg := StreamMessage{Type: "dropped", Service: service, Timestamp: time.Now()}
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to write dropped notice")
	}
}

// streamSignal maps the query parameter onto a live tail signal. Traces
// stream span rows; metrics are not streamable.
func streamSignal(raw string) (models.Signal, error) {
	switch raw {
	case "", "logs":
		return models.SignalLogs, nil
	case "traces", "spans":
		return models.SignalSpans, nil
	default:
		return "", errUnstreamableSignal
	}
}

// handleClientMessages watches for client disconnects. Live tail clients
// never send meaningful payloads; a read error means the peer went away.
func (s *APIServer) handleClientMessages(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(streamReadLimit)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug().Err(err).Msg("Stream client closed unexpectedly")
				}

				return
			}
		}
	}
}

// checkWebSocketOrigin validates the Origin header against the CORS
// configuration. Non-browser clients that send no Origin are allowed.
func (s *APIServer) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.corsConfig.AllowedOrigins) == 0 {
		return true
	}

	for _, allowed := range s.corsConfig.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}
