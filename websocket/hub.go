package websocket

import (
	"context"
	"sync"

	"mediadeck/types"

	"github.com/apex/log"
)

// TopicPlayback is the topic every playback update is published on
const TopicPlayback = "playback"

// Hub interface defines the methods for managing WebSocket connections
type Hub interface {
	Run(ctx context.Context)
	BroadcastPlayback(msg types.PlaybackMessage)
	RegisterClient(client *Client)
	UnregisterClient(client *Client)
	ClientCount(topic string) int
}

// hub maintains the set of active clients and broadcasts messages to them
type hub struct {
	// Registered clients mapped by topic
	clients map[string]map[*Client]bool

	broadcast  chan types.PlaybackMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() Hub {
	return &hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan types.PlaybackMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main event loop
func (h *hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.topic] == nil {
				h.clients[client.topic] = make(map[*Client]bool)
			}
			h.clients[client.topic][client] = true
			h.mu.Unlock()
			log.WithField("topic", client.topic).Debug("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			log.WithField("topic", client.topic).Debug("websocket client disconnected")

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[TopicPlayback] {
				select {
				case client.send <- message:
				default:
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held
func (h *hub) remove(client *Client) {
	clients, ok := h.clients[client.topic]
	if !ok {
		return
	}
	if _, ok := clients[client]; ok {
		delete(clients, client)
		close(client.send)
		if len(clients) == 0 {
			delete(h.clients, client.topic)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.remove(client)
		}
	}
}

// BroadcastPlayback queues a playback message for every playback client
func (h *hub) BroadcastPlayback(msg types.PlaybackMessage) {
	select {
	case h.broadcast <- msg:
	default:
		log.WithField("track", msg.Track).Warn("websocket broadcast channel full, dropping message")
	}
}

// RegisterClient registers a new client with the hub
func (h *hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// UnregisterClient unregisters a client from the hub
func (h *hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of clients subscribed to topic
func (h *hub) ClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}
