package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/Yassen717/Chatly/internal/ai"
	"github.com/Yassen717/Chatly/internal/chat"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

// wsFrame is the wire format for streaming chat over WebSocket.
// type is one of "chunk", "complete", "error".
type wsFrame struct {
	Type           string        `json:"type"`
	Text           string        `json:"text,omitempty"`
	Message        *chat.Message `json:"message,omitempty"`
	ConversationID string        `json:"conversationId,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// wsInbound is a client-submitted user turn.
type wsInbound struct {
	Text string `json:"text"`
}

type chatWSClient struct {
	conn   *websocket.Conn
	convID string
	send   chan wsFrame
	server *Server
	once   sync.Once
	done   chan struct{}
}

// handleChatWebSocket upgrades the connection and streams one exchange
// per inbound message: accumulated-text chunk frames, then a complete
// frame carrying the finalized assistant message.
func (s *Server) handleChatWebSocket(w http.ResponseWriter, r *http.Request) {
	convID := mux.Vars(r)["id"]

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := &chatWSClient{
		conn:   conn,
		convID: convID,
		send:   make(chan wsFrame, 256),
		server: s,
		done:   make(chan struct{}),
	}

	s.logger.Debug("WebSocket client connected", "conversation", convID)

	go client.writePump()
	client.readPump()
}

func (c *chatWSClient) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *chatWSClient) readPump() {
	defer func() {
		c.close()
		c.server.logger.Debug("WebSocket client disconnected", "conversation", c.convID)
	}()

	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		var msg wsInbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Warn("WebSocket read error", "error", err)
			}
			return
		}
		c.runExchange(msg.Text)
	}
}

// runExchange drives one streaming send, forwarding orchestrator
// callbacks as frames. It blocks the read loop, so a client cannot
// start overlapping exchanges on one connection.
func (c *chatWSClient) runExchange(text string) {
	streaming := true
	convID, err := c.server.orchestrator.SendMessage(context.Background(), c.convID, text, ai.SendOptions{
		Streaming: &streaming,
		OnChunk: func(accumulated string) {
			c.enqueue(wsFrame{Type: "chunk", Text: accumulated, ConversationID: c.convID})
		},
		OnComplete: func(msg chat.Message) {
			c.enqueue(wsFrame{Type: "complete", Message: &msg, ConversationID: msg.ConversationID})
		},
		OnError: func(err error) {
			c.enqueue(wsFrame{Type: "error", Error: err.Error(), ConversationID: c.convID})
		},
	})
	if err != nil {
		c.enqueue(wsFrame{Type: "error", Error: err.Error(), ConversationID: c.convID})
		return
	}
	// An empty path parameter creates a conversation on first send;
	// later turns reuse it.
	c.convID = convID
}

func (c *chatWSClient) enqueue(frame wsFrame) {
	select {
	case c.send <- frame:
	case <-c.done:
	}
}

func (c *chatWSClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
