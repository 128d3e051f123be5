package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/campuslink/campuslink-backend/internal/domain"
	"github.com/campuslink/campuslink-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const redisPubSubChannel = "campuslink:pushes"

// Hub is the connection registry: it tracks every live client connection
// keyed by user id and fans pushes out to them. A user may hold several
// simultaneous connections (multi-device); delivery goes to all of them.
// Delivery is best-effort: a dead connection is pruned and the fan-out
// continues — one bad socket never aborts a broadcast.
type Hub struct {
	// Registered clients grouped by user ID
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *targetedPush

	// onConnect fires when a user's first connection registers,
	// onDisconnect when their last connection goes away
	onConnect    func(userID string)
	onDisconnect func(userID string)

	// onDeliver fires once per delivered push, for metrics
	onDeliver func(action string)

	mu          sync.RWMutex
	redisClient *redis.Client
	ctx         context.Context
	cancel      context.CancelFunc
}

type targetedPush struct {
	UserID    string       `json:"user_id,omitempty"`
	MemberIDs []string     `json:"member_ids,omitempty"`
	Exclude   string       `json:"exclude,omitempty"`
	Push      *domain.Push `json:"push"`
}

// NewHub creates a new Hub. redisClient may be nil; the hub then serves
// this instance's connections only.
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *targetedPush, 256),
		redisClient: redisClient,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// OnConnect sets the first-connection callback (presence goes online)
func (h *Hub) OnConnect(fn func(userID string)) {
	h.onConnect = fn
}

// OnDisconnect sets the last-connection callback (presence goes offline)
func (h *Hub) OnDisconnect(fn func(userID string)) {
	h.onDisconnect = fn
}

// OnDeliver sets the per-push delivery hook
func (h *Hub) OnDeliver(fn func(action string)) {
	h.onDeliver = fn
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	if h.redisClient != nil {
		go h.subscribeRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case tp := <-h.broadcast:
			h.deliver(tp)

		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	first := h.clients[client.userID] == nil
	if first {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
	h.mu.Unlock()

	if first && h.onConnect != nil {
		h.onConnect(client.userID)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	last := false
	if clients, ok := h.clients[client.userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)
			if len(clients) == 0 {
				delete(h.clients, client.userID)
				last = true
			}
		}
	}
	h.mu.Unlock()

	if last && h.onDisconnect != nil {
		h.onDisconnect(client.userID)
	}
}

// deliver writes a push to every targeted connection. Connections whose
// send buffer is full are treated as dead and pruned in place.
func (h *Hub) deliver(tp *targetedPush) {
	data, err := json.Marshal(tp.Push)
	if err != nil {
		logger.GetLogger().Error().Err(err).Msg("push marshal failed")
		return
	}

	if h.onDeliver != nil {
		h.onDeliver(string(tp.Push.Action))
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch tp.Push.Scope {
	case domain.ScopeUser:
		h.writeToUserLocked(tp.UserID, data)
	case domain.ScopeChannel:
		for _, userID := range tp.MemberIDs {
			if userID == tp.Exclude {
				continue
			}
			h.writeToUserLocked(userID, data)
		}
	case domain.ScopeBroadcast:
		for userID := range h.clients {
			h.writeToUserLocked(userID, data)
		}
	}
}

func (h *Hub) writeToUserLocked(userID string, data []byte) {
	clients, ok := h.clients[userID]
	if !ok {
		return
	}
	for client := range clients {
		select {
		case client.send <- data:
		default:
			// Slow or dead connection: prune and keep going
			close(client.send)
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.clients, userID)
			}
		}
	}
}

// SendToUser delivers a push to all of one user's devices
func (h *Hub) SendToUser(userID string, push *domain.Push) {
	h.dispatch(&targetedPush{UserID: userID, Push: push})
}

// SendToChannelMembers delivers a push to every listed member except the
// excluded user (typically the sender)
func (h *Hub) SendToChannelMembers(memberIDs []string, push *domain.Push, excludeUserID string) {
	h.dispatch(&targetedPush{MemberIDs: memberIDs, Exclude: excludeUserID, Push: push})
}

// BroadcastAll delivers a push to every connected client regardless of
// channel membership (emergency alerts)
func (h *Hub) BroadcastAll(push *domain.Push) {
	h.dispatch(&targetedPush{Push: push})
}

// dispatch queues locally and mirrors to Redis for other instances.
// The local enqueue never blocks: the connect/disconnect hooks dispatch
// from inside the Run loop itself, and a blocking send there would
// deadlock the hub once the queue fills. Delivery is best-effort, so a
// push that finds the queue full is dropped instead.
func (h *Hub) dispatch(tp *targetedPush) {
	select {
	case h.broadcast <- tp:
	case <-h.ctx.Done():
		return
	default:
		logger.GetLogger().Warn().
			Str("action", string(tp.Push.Action)).
			Msg("push queue full, dropping")
	}

	if h.redisClient != nil {
		data, err := json.Marshal(tp)
		if err == nil {
			h.redisClient.Publish(h.ctx, redisPubSubChannel, data) //nolint:errcheck
		}
	}
}

// IsOnline reports whether a user has at least one live connection on
// this instance
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// OnlineUserIDs returns every user with a live connection on this instance
func (h *Hub) OnlineUserIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		ids = append(ids, userID)
	}
	return ids
}

// ConnectionCount returns the number of live connections on this instance
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}

// subscribeRedis listens for pushes published by other instances
func (h *Hub) subscribeRedis() {
	pubsub := h.redisClient.Subscribe(h.ctx, redisPubSubChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var tp targetedPush
			if err := json.Unmarshal([]byte(msg.Payload), &tp); err == nil && tp.Push != nil {
				// Local delivery only; never re-publish
				select {
				case h.broadcast <- &tp:
				case <-h.ctx.Done():
					return
				}
			}
		case <-h.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.cancel()
}
