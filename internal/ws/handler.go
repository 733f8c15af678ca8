package ws

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"skins-service/internal/model"
	appErr "skins-service/pkg/errors"
	"skins-service/pkg/logger"
	"skins-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const EventSnapshot = "round.snapshot"

type RoundReader interface {
	GetRound(ctx context.Context, roundID int64) (*model.Round, error)
}

type Handler struct {
	hub    *Hub
	rounds RoundReader
}

func NewHandler(hub *Hub, rounds RoundReader) *Handler {
	return &Handler{hub: hub, rounds: rounds}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // spectators load the board from any origin
	},
}

// HandleRoundWS streams a read-only feed of one round.
func (h *Handler) HandleRoundWS(c *gin.Context) {
	roundID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || roundID <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid round id")
		return
	}

	// Subscribe before reading the round so nothing published in between is lost.
	subID, feed := h.hub.Subscribe(roundID)

	round, err := h.rounds.GetRound(c.Request.Context(), roundID)
	if err != nil {
		h.hub.Unsubscribe(roundID, subID)
		if errors.Is(err, appErr.ErrRoundNotFound) {
			response.Error(c, http.StatusNotFound, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to load round")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.Unsubscribe(roundID, subID)
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	logger.Log.Info("New WebSocket connection", zap.Int64("roundID", roundID))

	snapshot := Message{Type: EventSnapshot, Seq: 0, RoundID: roundID, Data: round}
	newClient(conn, h.hub, roundID, subID, feed, snapshot).run()
}

type client struct {
	conn      *websocket.Conn
	hub       *Hub
	roundID   int64
	subID     int64
	feed      <-chan Message
	snapshot  Message
	done      chan struct{}
	pingEvery time.Duration
}

func newClient(conn *websocket.Conn, hub *Hub, roundID, subID int64, feed <-chan Message, snapshot Message) *client {
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	return &client{
		conn:      conn,
		hub:       hub,
		roundID:   roundID,
		subID:     subID,
		feed:      feed,
		snapshot:  snapshot,
		done:      make(chan struct{}),
		pingEvery: 25 * time.Second,
	}
}

func (c *client) run() {
	go c.writePump()
	c.readPump()
}

// readPump only keeps the deadline fresh; the feed is read-only.
func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.hub.Unsubscribe(c.roundID, c.subID)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			logger.Log.Info("WS read error", zap.Error(err), zap.Int64("roundID", c.roundID))
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	if !c.write(c.snapshot) {
		return
	}

	for {
		select {
		case msg, ok := <-c.feed:
			if !ok {
				return
			}
			if !c.write(msg) {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) write(msg Message) bool {
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteJSON(msg); err != nil {
		logger.Log.Info("WS write error", zap.Error(err), zap.Int64("roundID", c.roundID))
		return false
	}
	return true
}
