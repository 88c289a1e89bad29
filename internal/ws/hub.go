package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/minhngodev/campus-api/internal/service"
	"github.com/redis/go-redis/v9"
)

const redisChannel = "campus:dispatch-events"

// Hub is a broadcast-only feed of dispatch events for admin dashboards.
// Events go through Redis Pub/Sub so every instance delivers to its own
// connected clients regardless of which instance ran the dispatch.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client

	rdb *redis.Client
}

// NewHub creates a new dispatch-event hub
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rdb:        rdb,
	}
}

// Run starts the hub's event loop
func (h *Hub) Run(ctx context.Context) {
	go h.subscribeRedis(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Register queues a client for registration with the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	log.Printf("✅ Dashboard client connected: %s (total: %d)", client.UserID, len(h.clients))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	log.Printf("❌ Dashboard client disconnected: %s", client.UserID)
}

// PublishDispatch satisfies service.EventPublisher: the event goes through
// Redis so all instances (this one included) fan it out to their clients
func (h *Hub) PublishDispatch(event service.DispatchEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling dispatch event: %v", err)
		return
	}
	if err := h.rdb.Publish(context.Background(), redisChannel, data).Err(); err != nil {
		log.Printf("Error publishing dispatch event to Redis: %v", err)
	}
}

// broadcastLocal sends raw event bytes to every connected local client
func (h *Hub) broadcastLocal(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Client's send buffer is full, drop the connection
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// subscribeRedis delivers published events to this instance's clients
func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	log.Println("📡 Dispatch event subscriber started")

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			h.broadcastLocal([]byte(msg.Payload))
		}
	}
}
