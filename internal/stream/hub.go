package stream

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "recording:"
	channelSuffix  = ":events"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Hub fans recording events out to websocket clients watching a device.
// With redis configured, every broadcast is mirrored so clients connected
// to other instances see it too.
type Hub struct {
	redis    *redis.Client
	instance string
	clients  map[string]map[*Client]struct{}
	mu       sync.RWMutex

	cancel context.CancelFunc
	done   chan struct{}
}

type Client struct {
	DeviceID string
	Send     chan []byte
}

// envelope marks which instance published a message so it is not
// delivered twice locally.
type envelope struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:    redisClient,
		instance: uuid.NewString(),
		clients:  map[string]map[*Client]struct{}{},
		done:     make(chan struct{}),
	}

	if redisClient == nil {
		close(h.done)
		return h
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	pubsub := redisClient.PSubscribe(ctx, channelPattern)
	go h.subscribeRedis(ctx, pubsub)
	return h
}

func (h *Hub) Register(deviceID string) *Client {
	client := &Client{
		DeviceID: deviceID,
		Send:     make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[deviceID] == nil {
		h.clients[deviceID] = map[*Client]struct{}{}
	}
	h.clients[deviceID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	deviceClients, ok := h.clients[client.DeviceID]
	if !ok {
		return
	}
	if _, ok := deviceClients[client]; !ok {
		return
	}
	delete(deviceClients, client)
	if len(deviceClients) == 0 {
		delete(h.clients, client.DeviceID)
	}
	close(client.Send)
}

// ClientCount reports how many local clients watch a device.
func (h *Hub) ClientCount(deviceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[deviceID])
}

// Broadcast delivers payload to local watchers of deviceID and mirrors it
// to redis. Slow clients drop messages rather than stall the caller.
func (h *Hub) Broadcast(deviceID string, payload []byte) {
	h.deliver(deviceID, payload)

	if h.redis == nil {
		return
	}
	msg, err := json.Marshal(envelope{Origin: h.instance, Payload: payload})
	if err != nil {
		log.Printf("stream: encode envelope for %s: %v", deviceID, err)
		return
	}
	if err := h.redis.Publish(context.Background(), redisChannel(deviceID), msg).Err(); err != nil {
		log.Printf("redis publish error: %v", err)
	}
}

// BroadcastJSON encodes v and broadcasts it.
func (h *Hub) BroadcastJSON(deviceID string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(deviceID, payload)
	return nil
}

func (h *Hub) deliver(deviceID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[deviceID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis(ctx context.Context, pubsub *redis.PubSub) {
	defer close(h.done)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			deviceID := deviceIDFromChannel(msg.Channel)
			if deviceID == "" {
				continue
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("stream: bad message on %s: %v", msg.Channel, err)
				continue
			}
			if env.Origin == h.instance {
				continue
			}
			h.deliver(deviceID, env.Payload)
		}
	}
}

// Close stops the redis subscription.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
	<-h.done
}

func redisChannel(deviceID string) string {
	return channelPrefix + deviceID + channelSuffix
}

func deviceIDFromChannel(ch string) string {
	// recording:{device}:events
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
