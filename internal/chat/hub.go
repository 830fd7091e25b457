package chat

import (
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/mentorway/mentorway-be/internal/auth"
)

// Hub upgrades websocket connections, registers them with presence, and
// tears them down. One hub serves the whole process.
type Hub struct {
	service  *Service
	tokens   *auth.TokenManager
	upgrader websocket.Upgrader
}

// NewHub builds a hub. Allowed origins mirror the CORS configuration; an
// empty list admits every origin.
func NewHub(service *Service, tokens *auth.TokenManager, origins []string) *Hub {
	h := &Hub{
		service: service,
		tokens:  tokens,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(origins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range origins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// ServeWS authenticates the request, upgrades it, and starts the read and
// write pumps. The token comes from the "token" query parameter or a bearer
// Authorization header.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	identity, err := h.tokens.Parse(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("chat: upgrade failed: %v", err)
		return
	}

	client := newClient(h, conn, identity)
	online := h.service.presence.Register(identity.UserID, client)
	h.service.presence.Broadcast(Event{Event: EventOnlineUsers, Data: online})

	go client.writePump()
	go client.readPump()
}

// drop removes a client from presence and every room, closes its send
// channel, and broadcasts the shrunken online list. Safe to call more than
// once per client.
func (h *Hub) drop(c *Client) {
	if !c.markClosed() {
		return
	}
	online := h.service.presence.Unregister(c)
	h.service.rooms.RemoveHandle(c)
	close(c.send)
	h.service.presence.Broadcast(Event{Event: EventOnlineUsers, Data: online})
}
