package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mentorway/mentorway-be/internal/app"
	"github.com/mentorway/mentorway-be/internal/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 64
)

// Client is one websocket connection for one authenticated user. The
// identity comes from the verified token at upgrade time; sender ids in
// payloads are ignored.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	identity auth.Identity
	send     chan Event

	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, id auth.Identity) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		identity: id,
		send:     make(chan Event, sendBuffer),
	}
}

// Deliver queues an event for the connection's write pump. A client whose
// buffer is full is considered stuck and is dropped rather than blocking
// the broadcaster.
func (c *Client) Deliver(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- evt:
	default:
		go c.hub.drop(c)
	}
}

// markClosed flips the client to a terminal state; later Deliver calls are
// ignored. Returns false if the client was already closed.
func (c *Client) markClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	return true
}

func (c *Client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("chat: read error for user %d: %v", c.identity.UserID, err)
			}
			return
		}
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.Deliver(Event{Event: EventError, Data: map[string]string{"text": "malformed frame"}})
			continue
		}
		c.dispatch(frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case evt, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type typingPayload struct {
	IsTyping   bool  `json:"isTyping"`
	ReceiverID int64 `json:"receiverId"`
}

type fetchPayload struct {
	ReceiverID *int64 `json:"receiverId"`
	GroupID    *int64 `json:"groupId"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}

type sendPayload struct {
	Content    string `json:"content"`
	ReceiverID *int64 `json:"receiverId"`
	GroupID    *int64 `json:"groupId"`
}

type editPayload struct {
	MessageID  int64  `json:"messageId"`
	NewContent string `json:"newContent"`
}

type joinPayload struct {
	GroupID int64 `json:"groupId"`
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
}

type readPayload struct {
	MessageID int64 `json:"messageId"`
}

type deletePayload struct {
	MessageID int64 `json:"messageId"`
}

func (c *Client) dispatch(frame Frame) {
	ctx := context.Background()
	svc := c.hub.service

	switch frame.Event {
	case EventTyping:
		var p typingPayload
		if !c.decode(frame, &p) {
			return
		}
		svc.Typing(c.identity.UserID, p.IsTyping, p.ReceiverID)
		c.ack(frame, nil)

	case EventFetchMessages:
		var p fetchPayload
		if !c.decode(frame, &p) {
			return
		}
		msgs, err := svc.History(ctx, HistoryQuery{
			GroupID:    p.GroupID,
			SenderID:   c.identity.UserID,
			ReceiverID: p.ReceiverID,
			Page:       p.Page,
			Limit:      p.Limit,
		})
		if err != nil {
			c.fail(frame, err)
			return
		}
		c.Deliver(Event{Event: EventMessages, Data: msgs})
		c.ack(frame, nil)

	case EventNewMessage:
		var p sendPayload
		if !c.decode(frame, &p) {
			return
		}
		saved, err := svc.Send(ctx, SendInput{
			SenderID:   c.identity.UserID,
			Content:    p.Content,
			ReceiverID: p.ReceiverID,
			GroupID:    p.GroupID,
		})
		if err != nil {
			c.fail(frame, err)
			return
		}
		c.Deliver(Event{Event: EventMessageSent, Data: saved})
		c.ack(frame, saved)

	case EventEditMessage:
		var p editPayload
		if !c.decode(frame, &p) {
			return
		}
		updated, err := svc.Edit(ctx, p.MessageID, p.NewContent, c.identity.UserID)
		if err != nil {
			c.fail(frame, err)
			return
		}
		c.Deliver(Event{Event: EventMessageUpdated, Data: updated})
		c.ack(frame, updated)

	case EventJoinRoom:
		var p joinPayload
		if !c.decode(frame, &p) {
			return
		}
		history, err := svc.JoinRoom(ctx, c, p.GroupID, p.Page, p.Limit)
		if err != nil {
			c.fail(frame, err)
			return
		}
		c.Deliver(Event{Event: EventJoinedRoom, Data: map[string]int64{
			"groupId":      p.GroupID,
			"messageCount": int64(len(history)),
		}})
		c.Deliver(Event{Event: EventHistoricalMessages, Data: history})
		c.ack(frame, nil)

	case EventMessageRead:
		var p readPayload
		if !c.decode(frame, &p) {
			return
		}
		updated, err := svc.MarkRead(ctx, p.MessageID, c.identity.UserID)
		if err != nil {
			c.fail(frame, err)
			return
		}
		c.Deliver(Event{Event: EventMessageUpdated, Data: updated})
		c.ack(frame, updated)

	case EventDeleteMessage:
		var p deletePayload
		if !c.decode(frame, &p) {
			return
		}
		if err := svc.Delete(ctx, p.MessageID, c.identity.UserID); err != nil {
			c.fail(frame, err)
			return
		}
		c.Deliver(Event{Event: EventMessageDeleted, Data: map[string]int64{"messageId": p.MessageID}})
		c.ack(frame, nil)

	default:
		c.Deliver(Event{Event: EventError, Data: map[string]string{"text": "unknown event: " + frame.Event}})
	}
}

func (c *Client) decode(frame Frame, dst any) bool {
	if len(frame.Data) == 0 {
		c.fail(frame, app.ErrValidation)
		return false
	}
	if err := json.Unmarshal(frame.Data, dst); err != nil {
		c.fail(frame, app.ErrValidation)
		return false
	}
	return true
}

// ack answers a frame that carried an ack id. Frames without one get no ack.
func (c *Client) ack(frame Frame, data any) {
	if frame.AckID == "" {
		return
	}
	c.Deliver(Event{Event: EventAck, AckID: frame.AckID, Data: map[string]any{"ok": true, "data": data}})
}

// fail reports an error both as an error event and, when the frame carried
// an ack id, as a failed ack.
func (c *Client) fail(frame Frame, err error) {
	msg := publicError(err)
	c.Deliver(Event{Event: EventError, Data: map[string]string{"text": msg}})
	if frame.AckID != "" {
		c.Deliver(Event{Event: EventAck, AckID: frame.AckID, Data: map[string]any{"ok": false, "error": msg}})
	}
}

func publicError(err error) string {
	switch {
	case errors.Is(err, app.ErrValidation):
		return "invalid request"
	case errors.Is(err, app.ErrNotFound):
		return "not found"
	case errors.Is(err, app.ErrPermission):
		return "not allowed"
	default:
		return "internal error"
	}
}
