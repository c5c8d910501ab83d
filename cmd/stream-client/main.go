// WebSocket client for tailing live telemetry
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// StreamMessage represents a message received from the WebSocket
type StreamMessage struct {
	Type      string                 `json:"type"`
	Service   string                 `json:"service,omitempty"`
	Signal    string                 `json:"signal,omitempty"`
	Record    map[string]interface{} `json:"record,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func main() {
	var (
		host        = flag.String("host", "localhost:8080", "Gateway host:port")
		service     = flag.String("service", "", "Service name to tail (required)")
		signalKind  = flag.String("signal", "logs", "Signal to tail: logs or traces")
		environment = flag.String("environment", "", "Environment header to send")
		secure      = flag.Bool("secure", false, "Use WSS instead of WS")
	)
	flag.Parse()

	if *service == "" {
		log.Fatal("Service name required: provide via -service flag")
	}

	scheme := "ws"
	if *secure {
		scheme = "wss"
	}

	u := url.URL{
		Scheme: scheme,
		Host:   *host,
		Path:   "/api/stream",
		RawQuery: url.Values{
			"service": {*service},
			"signal":  {*signalKind},
		}.Encode(),
	}

	log.Printf("Connecting to %s", u.String())

	headers := make(map[string][]string)
	if *environment != "" {
		headers["X-Environment"] = []string{*environment}
	}

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), headers)
	if err != nil {
		if resp != nil {
			log.Printf("HTTP response status: %s", resp.Status)
		}
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	// Handle graceful shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)

	messages := make(chan StreamMessage, 100)
	done := make(chan struct{})

	// Start goroutine to read messages
	go func() {
		defer close(done)
		for {
			var msg StreamMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("WebSocket error: %v", err)
				}
				return
			}
			messages <- msg
		}
	}()

	var (
		recordCount int
		startTime   = time.Now()
	)

	for {
		select {
		case msg := <-messages:
			switch msg.Type {
			case "connected":
				log.Printf("Connected. Tailing %s for service %q", msg.Signal, msg.Service)

			case "record":
				recordCount++
				data, _ := json.MarshalIndent(msg.Record, "", "  ")
				fmt.Printf("\n=== Record %d (%.3fs) ===\n%s\n",
					recordCount, time.Since(startTime).Seconds(), string(data))

			case "dropped":
				log.Printf("Disconnected: client fell behind the live stream")
				log.Printf("   Total records: %d", recordCount)
				log.Printf("   Duration: %s", time.Since(startTime))
				return

			default:
				log.Printf("Unknown message type: %s", msg.Type)
			}

		case <-interrupt:
			log.Println("\nReceived interrupt signal, closing connection...")

			err := conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Printf("Error sending close message: %v", err)
			}

			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return

		case <-done:
			log.Printf("Stream closed. Total records: %d", recordCount)
			return
		}
	}
}
