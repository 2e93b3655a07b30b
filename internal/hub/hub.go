package hub

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

const EventDocumentChanged = "document_changed"

type Event struct {
	Type       string `json:"type"`
	Collection string `json:"collection"`
	DocumentID string `json:"document_id,omitempty"`
}

// Client is a single live-query listener. Send is buffered with room for one
// pending event: listeners re-read the full result set on every signal, so
// further events that arrive while one is pending carry no extra information.
type Client struct {
	ID          string
	Collections map[string]bool
	Send        chan Event
}

func NewClient(collections ...string) *Client {
	c := &Client{
		ID:          uuid.New().String(),
		Collections: make(map[string]bool, len(collections)),
		Send:        make(chan Event, 1),
	}
	for _, name := range collections {
		c.Collections[name] = true
	}
	return c
}

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled. All
// remaining clients are closed on exit.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for id, client := range h.clients {
			delete(h.clients, id)
			close(client.Send)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				if client.Collections[event.Collection] {
					select {
					case client.Send <- event:
					default:
						// A signal is already pending for this client
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish announces that a document in collection changed. It never blocks
// once the hub has stopped.
func (h *Hub) Publish(collection, documentID string) {
	event := Event{
		Type:       EventDocumentChanged,
		Collection: collection,
		DocumentID: documentID,
	}
	select {
	case h.broadcast <- event:
	case <-h.done:
	}
}
