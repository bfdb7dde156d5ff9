// Package broadcast implements named publish/subscribe channels shared by
// every context of one monitor instance.
package broadcast

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// MessageType identifies the kind of change carried by a Message.
type MessageType string

// Supported message types. EvictItems carries the asins dropped by garbage
// collection in Message.ASINs.
const (
	HideItem   MessageType = "hideItem"
	ShowItem   MessageType = "showItem"
	EvictItems MessageType = "evictItems"
)

// Message is the payload exchanged on a channel.
type Message struct {
	Type  MessageType `json:"type,omitempty"`
	ASIN  string      `json:"asin,omitempty"`
	ASINs []string    `json:"asins,omitempty"`
}

// Handler receives messages published by other endpoints.
type Handler func(Message)

// Hub routes messages between endpoints joined on the same channel name.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[string]*Endpoint
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{channels: make(map[string]map[string]*Endpoint)}
}

// Join attaches a new endpoint to the named channel.
func (h *Hub) Join(name string, handler Handler) *Endpoint {
	e := &Endpoint{
		hub:     h,
		name:    name,
		id:      ulid.Make().String(),
		handler: handler,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.channels[name] == nil {
		h.channels[name] = make(map[string]*Endpoint)
	}
	h.channels[name][e.id] = e
	return e
}

// Members returns the number of endpoints joined on the named channel.
func (h *Hub) Members(name string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[name])
}

func (h *Hub) leave(e *Endpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.channels[e.name], e.id)
	if len(h.channels[e.name]) == 0 {
		delete(h.channels, e.name)
	}
}

func (h *Hub) peers(e *Endpoint) []*Endpoint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Endpoint, 0, len(h.channels[e.name]))
	for id, peer := range h.channels[e.name] {
		if id != e.id {
			out = append(out, peer)
		}
	}
	return out
}

// Endpoint is one context's attachment to a channel. An endpoint never
// receives its own messages.
type Endpoint struct {
	hub     *Hub
	name    string
	id      string
	handler Handler
	once    sync.Once
}

// ID returns the endpoint's unique identifier.
func (e *Endpoint) ID() string {
	return e.id
}

// Publish delivers msg to every other endpoint on the channel and returns
// the number of receivers. Handlers run on the caller's goroutine.
func (e *Endpoint) Publish(msg Message) int {
	peers := e.hub.peers(e)
	for _, p := range peers {
		if p.handler != nil {
			p.handler(msg)
		}
	}
	return len(peers)
}

// Close detaches the endpoint from its channel.
func (e *Endpoint) Close() {
	e.once.Do(func() { e.hub.leave(e) })
}
