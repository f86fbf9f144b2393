package stream

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Event is the payload pushed to websocket subscribers when an activity
// changes, e.g. after a Strava sync stored new stream points.
type Event struct {
	Type       string `json:"type"`
	ActivityID string `json:"activity_id"`
	Points     int    `json:"points,omitempty"`
}

type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	ActivityID string
	Send       chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(activityID string) *Client {
	client := &Client{
		ActivityID: activityID,
		Send:       make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[activityID] == nil {
		h.clients[activityID] = map[*Client]struct{}{}
	}
	h.clients[activityID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if activityClients, ok := h.clients[client.ActivityID]; ok {
		delete(activityClients, client)
		if len(activityClients) == 0 {
			delete(h.clients, client.ActivityID)
		}
	}
	close(client.Send)
}

func (h *Hub) Broadcast(activityID string, payload []byte) {
	h.mu.RLock()
	clients := h.clients[activityID]
	h.mu.RUnlock()

	for client := range clients {
		select {
		case client.Send <- payload:
		default:
		}
	}

	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(activityID), payload).Err()
		if err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	// SUBSCRIBE takes channel names literally; the glob needs PSUBSCRIBE.
	pubsub := h.redis.PSubscribe(ctx, "activity:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		activityID := activityIDFromChannel(msg.Channel)
		h.mu.RLock()
		clients := h.clients[activityID]
		h.mu.RUnlock()
		for client := range clients {
			select {
			case client.Send <- []byte(msg.Payload):
			default:
			}
		}
	}
}

func redisChannel(activityID string) string {
	return "activity:" + activityID + ":events"
}

func activityIDFromChannel(ch string) string {
	// activity:{id}:events
	const prefix = "activity:"
	const suffix = ":events"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
