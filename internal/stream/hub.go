// Package stream fans out spot change events to subscribed clients. It is
// the observable channel UI layers can watch instead of polling: business
// operations return their results directly and publish an event here as a
// side channel.
package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Event describes one change to a spot.
type Event struct {
	SpotID string    `json:"spot_id"`
	Kind   string    `json:"kind"`
	At     time.Time `json:"at"`
}

// Event kinds published by the spot service.
const (
	EventCreated         = "created"
	EventUpdated         = "updated"
	EventRated           = "rated"
	EventHidden          = "hidden"
	EventUnhidden        = "unhidden"
	EventDeleted         = "deleted"
	EventMarkedDuplicate = "markedDuplicate"
)

type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	SpotID string
	Send   chan []byte
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

func (h *Hub) Register(spotID string) *Client {
	client := &Client{
		SpotID: spotID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[spotID] == nil {
		h.clients[spotID] = map[*Client]struct{}{}
	}
	h.clients[spotID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if spotClients, ok := h.clients[client.SpotID]; ok {
		delete(spotClients, client)
		if len(spotClients) == 0 {
			delete(h.clients, client.SpotID)
		}
	}
	close(client.Send)
}

// Publish sends an event to local subscribers and mirrors it to Redis so
// other instances can fan it out too. A nil hub is a no-op.
func (h *Hub) Publish(spotID, kind string) {
	if h == nil {
		return
	}

	payload, _ := json.Marshal(Event{SpotID: spotID, Kind: kind, At: time.Now().UTC()})

	// With Redis attached, the pub/sub loopback delivers our own message
	// back to fanOut, so a direct local fan-out would double-send.
	if h.redis != nil {
		if err := h.redis.Publish(context.Background(), redisChannel(spotID), payload).Err(); err != nil {
			log.Error().Err(err).Str("spot_id", spotID).Msg("redis publish failed")
		}
		return
	}

	h.fanOut(spotID, payload)
}

func (h *Hub) fanOut(spotID string, payload []byte) {
	h.mu.RLock()
	clients := h.clients[spotID]
	h.mu.RUnlock()

	for client := range clients {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "spots:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.fanOut(spotIDFromChannel(msg.Channel), []byte(msg.Payload))
	}
}

func redisChannel(spotID string) string {
	return "spots:" + spotID + ":events"
}

func spotIDFromChannel(ch string) string {
	// spots:{id}:events
	const prefix = "spots:"
	const suffix = ":events"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
