package presencews

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/lovenda/seatplan/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// envelope is the client-to-server message.
type envelope struct {
	Type   string `json:"type"` // join | heartbeat | leave
	Status string `json:"status,omitempty"`
	Target string `json:"targetElementId,omitempty"`
	Color  string `json:"color,omitempty"`
}

// rosterFrame is the server-to-client message.
type rosterFrame struct {
	Type    string                 `json:"type"`
	Entries []domain.PresenceEntry `json:"entries"`
}

func encodeRoster(entries []domain.PresenceEntry) ([]byte, error) {
	return json.Marshal(rosterFrame{Type: "presence", Entries: entries})
}

// wsConn is a socket endpoint with a buffered send queue. The adapter
// owns the transport and closes it; TrySend never blocks.
type wsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn, send: make(chan []byte, 32)}
}

func (c *wsConn) TrySend(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// Controller terminates presence websockets onto the channel's hubs.
type Controller struct {
	Channel *Channel
}

func NewController(channel *Channel) *Controller {
	return &Controller{Channel: channel}
}

// HandlePresence upgrades the request and pumps frames both ways until
// the client leaves or the socket dies.
func (ctl *Controller) HandlePresence(ctx context.Context, c *gin.Context) {
	weddingID := domain.WeddingID(c.Param("weddingID"))
	userID := domain.UserID(c.GetString("client_token"))
	if weddingID == "" || userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing wedding or session"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Str("module", "presencews").Err(err).Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "presencews").Str("wedding", string(weddingID)).Str("user", string(userID)).Msg("presence connection")

	conn := newWSConn(ws)
	h := ctl.Channel.hub(weddingID)
	h.attach(conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, h, userID, conn)
}

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Debug().Str("module", "presencews").Err(err).Msg("write pump ending")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, h *hub, userID domain.UserID, c *wsConn) {
	defer func() {
		cancel()
		h.detach(c)
		h.drop(userID)
		c.Close()
		log.Info().Str("module", "presencews").Str("user", string(userID)).Msg("presence connection closed")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			if done := ctl.handleEnvelope(h, userID, data); done {
				return
			}
		}
	}
}

// handleEnvelope applies one client message and reports whether the
// client said goodbye.
func (ctl *Controller) handleEnvelope(h *hub, userID domain.UserID, data []byte) bool {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Str("module", "presencews").Err(err).Msg("bad presence envelope")
		return false
	}

	switch env.Type {
	case "join", "heartbeat":
		status := domain.PresenceStatus(env.Status)
		if status != domain.StatusEditing {
			status = domain.StatusViewing
		}
		h.touch(domain.PresenceEntry{
			UserID:     userID,
			Status:     status,
			Target:     domain.ElementID(env.Target),
			Color:      env.Color,
			LastSeenAt: time.Now(),
		})
		return false
	case "leave":
		return true
	default:
		log.Warn().Str("module", "presencews").Str("type", env.Type).Msg("unknown presence envelope")
		return false
	}
}
