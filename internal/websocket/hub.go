package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message represents a real-time notification broadcast to clients.
type Message struct {
	Type    string `json:"type"`
	Entity  string `json:"entity"`
	Action  string `json:"action"`
	ID      int64  `json:"id,omitempty"`
	TeamID  int64  `json:"team_id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id int64, payload any) Message {
	return Message{
		Type:    fmt.Sprintf("%s_%s", entity, action),
		Entity:  entity,
		Action:  action,
		ID:      id,
		Payload: payload,
	}
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
// Clients receive all platform-wide broadcasts; team-scoped broadcasts only go
// to clients that joined that team's channel.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	teams   map[int64]map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		teams:   make(map[int64]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and every team channel, and closes
// its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		for teamID, members := range h.teams {
			delete(members, c)
			if len(members) == 0 {
				delete(h.teams, teamID)
			}
		}
		close(c.send)
	}
	h.mu.Unlock()
}

// JoinTeam subscribes a client to a team's channel.
func (h *Hub) JoinTeam(c *Client, teamID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	members, ok := h.teams[teamID]
	if !ok {
		members = make(map[*Client]struct{})
		h.teams[teamID] = members
	}
	members[c] = struct{}{}
}

// LeaveTeam unsubscribes a client from a team's channel.
func (h *Hub) LeaveTeam(c *Client, teamID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.teams[teamID]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.teams, teamID)
	}
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		c.trySend(data)
	}
}

// BroadcastToTeam sends a message only to clients subscribed to the team's
// channel. The message carries the team id so clients can route it.
func (h *Hub) BroadcastToTeam(teamID int64, msg Message) {
	msg.TeamID = teamID
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal team broadcast", "error", err, "team_id", teamID)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.teams[teamID] {
		c.trySend(data)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TeamSubscriberCount returns the number of clients on a team's channel.
func (h *Hub) TeamSubscriberCount(teamID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.teams[teamID])
}
