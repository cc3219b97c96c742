package gateway

import (
	"sync"

	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Conn is the write half of a websocket connection.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
}

type Client struct {
	ID     string
	UserID uint

	conn  Conn
	write sync.Mutex

	// Channel ids this client listens to, guarded by the hub lock
	rooms map[uint]struct{}
}

func (v *Client) Push(task models.UnifiedCommand) error {
	v.write.Lock()
	defer v.write.Unlock()
	return v.conn.WriteMessage(websocket.TextMessage, task.Marshal())
}

// Hub tracks the connections of this node and the channel rooms they joined.
// With a redis client attached every fan-out is relayed to the other nodes too.
type Hub struct {
	mu sync.RWMutex

	// UserID -> ClientID -> Client
	users map[uint]map[string]*Client
	// ChannelID -> ClientID -> Client
	rooms map[uint]map[string]*Client

	node  string
	redis *redis.Client
}

func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		users: make(map[uint]map[string]*Client),
		rooms: make(map[uint]map[string]*Client),
		node:  uuid.NewString(),
		redis: rdb,
	}
}

func (h *Hub) Register(userId uint, conn Conn) *Client {
	client := &Client{
		ID:     uuid.NewString(),
		UserID: userId,
		conn:   conn,
		rooms:  make(map[uint]struct{}),
	}

	h.mu.Lock()
	if _, ok := h.users[userId]; !ok {
		h.users[userId] = make(map[string]*Client)
	}
	h.users[userId][client.ID] = client
	h.mu.Unlock()

	log.Debug().Str("client", client.ID).Uint("user", userId).Msg("Gateway client registered.")
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for channelId := range client.rooms {
		h.leaveRoom(channelId, client)
	}
	if clients, ok := h.users[client.UserID]; ok {
		delete(clients, client.ID)
		if len(clients) == 0 {
			delete(h.users, client.UserID)
		}
	}

	log.Debug().Str("client", client.ID).Uint("user", client.UserID).Msg("Gateway client unregistered.")
}

func (h *Hub) Subscribe(channelId uint, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[channelId]; !ok {
		h.rooms[channelId] = make(map[string]*Client)
	}
	h.rooms[channelId][client.ID] = client
	client.rooms[channelId] = struct{}{}
}

func (h *Hub) Unsubscribe(channelId uint, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoom(channelId, client)
}

// leaveRoom expects the hub lock to be held.
func (h *Hub) leaveRoom(channelId uint, client *Client) {
	delete(client.rooms, channelId)
	if room, ok := h.rooms[channelId]; ok {
		delete(room, client.ID)
		if len(room) == 0 {
			delete(h.rooms, channelId)
		}
	}
}

// IsSubscribed reports whether any local connection of user listens to the channel.
func (h *Hub) IsSubscribed(channelId uint, userId uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.SomeBy(lo.Values(h.rooms[channelId]), func(item *Client) bool {
		return item.UserID == userId
	})
}

func (h *Hub) Broadcast(channelId uint, task models.UnifiedCommand) {
	h.broadcastLocal(channelId, task)
	h.publish(envelope{Kind: relayBroadcast, ChannelID: channelId, Command: task})
}

func (h *Hub) PushUser(userId uint, task models.UnifiedCommand) {
	h.pushUserLocal(userId, task)
	h.publish(envelope{Kind: relayPushUser, UserID: userId, Command: task})
}

// EvictUser drops every connection of user from the channel room.
func (h *Hub) EvictUser(channelId uint, userId uint) {
	h.evictLocal(channelId, userId)
	h.publish(envelope{Kind: relayEvict, ChannelID: channelId, UserID: userId})
}

// CloseRoom sends task to everyone still listening and forgets the room.
func (h *Hub) CloseRoom(channelId uint, task models.UnifiedCommand) {
	h.closeRoomLocal(channelId, task)
	h.publish(envelope{Kind: relayCloseRoom, ChannelID: channelId, Command: task})
}

func (h *Hub) broadcastLocal(channelId uint, task models.UnifiedCommand) {
	h.mu.RLock()
	clients := lo.Values(h.rooms[channelId])
	h.mu.RUnlock()

	pushAll(clients, task)
}

func (h *Hub) pushUserLocal(userId uint, task models.UnifiedCommand) {
	h.mu.RLock()
	clients := lo.Values(h.users[userId])
	h.mu.RUnlock()

	pushAll(clients, task)
}

func (h *Hub) evictLocal(channelId uint, userId uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.users[userId] {
		h.leaveRoom(channelId, client)
	}
}

func (h *Hub) closeRoomLocal(channelId uint, task models.UnifiedCommand) {
	h.mu.Lock()
	clients := lo.Values(h.rooms[channelId])
	for _, client := range clients {
		h.leaveRoom(channelId, client)
	}
	h.mu.Unlock()

	pushAll(clients, task)
}

func pushAll(clients []*Client, task models.UnifiedCommand) {
	for _, client := range clients {
		if err := client.Push(task); err != nil {
			log.Debug().Err(err).Str("client", client.ID).Msg("Unable to push command to gateway client.")
		}
	}
}
