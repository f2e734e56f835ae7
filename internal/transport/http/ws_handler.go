package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rbschat/gateway/internal/core"
	"github.com/rbschat/gateway/internal/proto"
	"github.com/rbschat/gateway/internal/utils"
)

const writeTimeout = 10 * time.Second

// WSHandler upgrades HTTP connections and hands them to the protocol
// handler.
type WSHandler struct {
	handler *core.Handler
	limiter *rateLimiter
	log     *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(handler *core.Handler, limiter *rateLimiter, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{handler: handler, limiter: limiter, log: logger}
}

// Handle serves GET /ws/:room_id?method=...&token=...
func (h *WSHandler) Handle(c *gin.Context) {
	if !h.limiter.allow() {
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many connections, try again later"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}

	params := core.ConnectParams{
		RoomID: c.Param("room_id"),
		Mode:   parseJoinMode(c.Query(proto.ParamMethod)),
		Token:  c.Query(proto.ParamToken),
	}

	wc := &wsConn{id: utils.NewID(), conn: conn}
	defer wc.Close(core.CloseError)

	h.handler.Run(c.Request.Context(), wc, params)
}

// wsConn adapts a websocket connection to core.Conn.
type wsConn struct {
	id   string
	conn *websocket.Conn

	// Deliver may be called by the owning handler and by broadcasts from
	// other connections' handlers; writes are serialized here.
	writeMu sync.Mutex

	closeOnce sync.Once
}

func (c *wsConn) ID() string {
	return c.id
}

func (c *wsConn) ReadCommand(ctx context.Context) (core.Command, error) {
	var inbound proto.Inbound
	if err := wsjson.Read(ctx, c.conn, &inbound); err != nil {
		return core.Command{}, err
	}
	return inboundToCommand(inbound), nil
}

func (c *wsConn) Deliver(ctx context.Context, ev core.Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	return wsjson.Write(writeCtx, c.conn, frameFromEvent(ev))
}

func (c *wsConn) Close(reason core.CloseReason) {
	c.closeOnce.Do(func() {
		status := websocket.StatusNormalClosure
		text := "closing"
		switch reason {
		case core.CloseKicked:
			text = "You have been kicked."
		case core.CloseError:
			status = websocket.StatusPolicyViolation
			text = "rejected"
		}
		_ = c.conn.Close(status, text)
	})
}
