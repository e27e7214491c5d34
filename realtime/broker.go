// Package realtime streams pipeline progress to browsers over
// Server-Sent Events.
package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
)

// clientBuffer is per-connection; slow consumers drop events rather
// than stall the pipeline.
const clientBuffer = 16

// Broker fans pipeline progress events out to connected SSE clients.
// Delivery is fire-and-forget: a client that cannot keep up misses
// events, and events published with nobody connected go nowhere.
type Broker struct {
	clients    map[chan []byte]struct{}
	register   chan chan []byte
	unregister chan chan []byte
	events     chan []byte

	mu sync.RWMutex
}

// NewBroker creates an SSE broker. Run must be started in its own
// goroutine before clients connect.
func NewBroker() *Broker {
	return &Broker{
		clients:    make(map[chan []byte]struct{}),
		register:   make(chan chan []byte),
		unregister: make(chan chan []byte),
		events:     make(chan []byte, 256),
	}
}

// Run owns the client set and dispatches events until the process exits
func (b *Broker) Run() {
	for {
		select {
		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = struct{}{}
			total := len(b.clients)
			b.mu.Unlock()
			log.Printf("📡 SSE client connected (total: %d)", total)

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client)
				log.Printf("📡 SSE client disconnected (total: %d)", len(b.clients))
			}
			b.mu.Unlock()

		case msg := <-b.events:
			b.mu.RLock()
			for client := range b.clients {
				select {
				case client <- msg:
				default: // slow client, drop
				}
			}
			b.mu.RUnlock()
		}
	}
}

// ClientCount reports the number of connected SSE clients
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast queues one named event for all clients. Never blocks: the
// event is dropped when the dispatch buffer is full.
func (b *Broker) Broadcast(event string, payload interface{}) {
	msg, err := json.Marshal(map[string]interface{}{
		"event":   event,
		"payload": payload,
	})
	if err != nil {
		log.Printf("⚠️ Failed to encode %s event: %v", event, err)
		return
	}

	select {
	case b.events <- msg:
	default:
	}
}

// ServeHTTP subscribes the connection to the event stream until the
// client goes away.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	client := make(chan []byte, clientBuffer)
	b.register <- client

	// Open the stream right away so the browser fires onopen
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			b.unregister <- client
			return
		case msg := <-client:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
