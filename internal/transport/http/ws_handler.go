package http

import (
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chantalk-server/internal/core"
	"github.com/vovakirdan/chantalk-server/internal/utils"
)

// WSHandler upgrades HTTP connections and hands them to a channel session.
type WSHandler struct {
	registry    *core.Registry
	broadcaster *core.Broadcaster
	gate        core.IdentityGate
	policy      core.AccessPolicy
	sink        core.MessageSink
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(registry *core.Registry, broadcaster *core.Broadcaster, gate core.IdentityGate, policy core.AccessPolicy, sink core.MessageSink, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		registry:    registry,
		broadcaster: broadcaster,
		gate:        gate,
		policy:      policy,
		sink:        sink,
		log:         logger,
	}
}

// Serve handles a channel websocket connection.
// GET /ws/:channel_id?token=<jwt>
func (h *WSHandler) Serve(c *gin.Context) {
	channelID, err := strconv.ParseInt(c.Param("channel_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid channel id"})
		return
	}

	// The credential rides in the query string: browser websocket clients
	// cannot set an Authorization header. It is validated after the upgrade
	// so rejections arrive as close frames, not HTTP errors.
	token := c.Query("token")

	wsc, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Int64("channel_id", channelID).Msg("ws accept error")
		return
	}

	connLog := h.log.With().Str("conn_id", utils.NewID()).Logger()
	session := core.NewSession(h.registry, h.broadcaster, h.gate, h.policy, h.sink, &connLog)
	session.Run(c.Request.Context(), newWSConn(wsc), channelID, token)
}
