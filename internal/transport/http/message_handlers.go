package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chantalk-server/internal/core"
	"github.com/vovakirdan/chantalk-server/internal/store"
)

const defaultMessageLimit = 100

// MessageHandlers provides HTTP handlers for message history.
type MessageHandlers struct {
	store  store.Store
	policy core.AccessPolicy
	log    *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.Store, policy core.AccessPolicy, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		store:  st,
		policy: policy,
		log:    logger,
	}
}

// MessageItem represents a message in API responses.
type MessageItem struct {
	ID        int64  `json:"id"`
	SenderID  int64  `json:"sender_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// List handles listing a channel's messages.
// GET /api/messages/:channel_id
func (h *MessageHandlers) List(c *gin.Context) {
	id, ok := identityFromContext(c)
	if !ok {
		h.log.Error().Msg("identity not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	channelID, err := strconv.ParseInt(c.Param("channel_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid channel id"})
		return
	}

	// Same gate the live connection path uses.
	if err := h.policy.Authorize(c.Request.Context(), id, channelID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "channel not found"})
			return
		}
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "you do not have access to this channel"})
		return
	}

	var beforeID *int64
	if raw := c.Query("before_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid before_id"})
			return
		}
		beforeID = &parsed
	}

	messages, err := h.store.ListMessages(c.Request.Context(), channelID, defaultMessageLimit, beforeID)
	if err != nil {
		h.log.Error().Err(err).Int64("channel_id", channelID).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageItem, 0, len(messages))
	for _, msg := range messages {
		response = append(response, MessageItem{
			ID:        msg.ID,
			SenderID:  msg.UserID,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, response)
}
