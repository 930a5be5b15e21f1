package http

import (
	"log"
	"sync"

	"live-quiz-service/internal/app"
)

// Hub routes events to live connections by connection id. It implements app.Notifier.
type Hub struct {
	buffer int

	mu      sync.RWMutex
	clients map[string]*client
}

type client struct {
	id   string
	send chan outboundMessage[any]

	mu     sync.Mutex
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{buffer: buffer, clients: make(map[string]*client)}
}

func (h *Hub) register(id string) *client {
	c := &client{id: id, send: make(chan outboundMessage[any], h.buffer)}
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

// Send queues event for connID. Unknown or closed connections are ignored.
func (h *Hub) Send(connID string, event app.Event) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	c.enqueue(outboundMessage[any]{Type: event.Type, Payload: event.Payload})
}

// Len reports the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// enqueue never blocks: when the buffer is full the oldest queued message is dropped.
func (c *client) enqueue(msg outboundMessage[any]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for {
		select {
		case c.send <- msg:
			return
		default:
		}
		select {
		case dropped := <-c.send:
			log.Printf("conn %s is slow, dropped queued %s", c.id, dropped.Type)
		default:
		}
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
