// Package sse implements a Server-Sent Events broker that streams store
// lifecycle events to connected clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ReloadInfo is the payload of a store.reloaded event.
type ReloadInfo struct {
	Notes   int    `json:"notes"`
	Version string `json:"version"`
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single loop goroutine owns the subscriber set and
// executes operations posted to it as closures, so no mutexes are needed.
type Broker struct {
	keepalive time.Duration

	ops     chan func(subs map[chan []byte]struct{})
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that sends a comment ping on the given
// keepalive interval so idle proxies keep the stream open.
func NewBroker(keepalive time.Duration) *Broker {
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}
	b := &Broker{
		keepalive: keepalive,
		ops:       make(chan func(map[chan []byte]struct{}), 64),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)

	subs := make(map[chan []byte]struct{})
	ping := time.NewTicker(b.keepalive)
	defer ping.Stop()

	for {
		select {
		case <-b.stopCh:
			for sub := range subs {
				close(sub)
			}
			return
		case op := <-b.ops:
			op(subs)
		case <-ping.C:
			broadcast(subs, []byte(": ping\n\n"))
		}
	}
}

// broadcast fans a frame out to every subscriber. A subscriber whose
// buffer is full misses the frame; the loop never blocks on a slow client.
func broadcast(subs map[chan []byte]struct{}, frame []byte) {
	for sub := range subs {
		select {
		case sub <- frame:
		default:
		}
	}
}

// post hands an operation to the loop, dropping it when the broker has
// already stopped.
func (b *Broker) post(op func(subs map[chan []byte]struct{})) {
	select {
	case b.ops <- op:
	case <-b.stopped:
	}
}

// Close gracefully stops the broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	sub := make(chan []byte, 64)
	if b.closed.Load() {
		close(sub)
		return sub
	}
	b.post(func(subs map[chan []byte]struct{}) {
		subs[sub] = struct{}{}
	})
	return sub
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(sub chan []byte) {
	if b.closed.Load() {
		return
	}
	b.post(func(subs map[chan []byte]struct{}) {
		if _, ok := subs[sub]; ok {
			delete(subs, sub)
			close(sub)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	b.post(func(subs map[chan []byte]struct{}) {
		resp <- len(subs)
	})
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return
	}
	frame := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))
	b.post(func(subs map[chan []byte]struct{}) {
		broadcast(subs, frame)
	})
}

// PublishReload broadcasts a store.reloaded event after a snapshot swap.
func (b *Broker) PublishReload(info ReloadInfo) {
	b.Publish(Event{Type: "store.reloaded", Data: info})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
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
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-sub:
			if !ok {
				return
			}
			_, _ = w.Write(frame)
			flusher.Flush()
		}
	}
}
