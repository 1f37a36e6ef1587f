package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chantalk-server/internal/core"
	"github.com/vovakirdan/chantalk-server/internal/store"
)

// ModeratorHandlers provides HTTP handlers for moderator-only endpoints.
type ModeratorHandlers struct {
	store    store.Store
	registry *core.Registry
	log      *zerolog.Logger
}

// NewModeratorHandlers creates a new moderator handlers instance.
func NewModeratorHandlers(st store.Store, registry *core.Registry, logger *zerolog.Logger) *ModeratorHandlers {
	return &ModeratorHandlers{
		store:    st,
		registry: registry,
		log:      logger,
	}
}

// CreateChannelRequest represents the channel creation request body.
type CreateChannelRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// ChannelResponse represents a channel in API responses.
type ChannelResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// BlockUser handles blocking a user.
// POST /api/moderator/block_user/:user_id
func (h *ModeratorHandlers) BlockUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to load user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if user.IsModerator {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "cannot block a moderator"})
		return
	}
	if user.IsBlocked {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user is already blocked"})
		return
	}

	if err := h.store.SetBlocked(c.Request.Context(), userID, true); err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to block user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("user_id", userID).Str("username", user.Username).Msg("user blocked")
	c.JSON(http.StatusOK, MessageResponse{Message: "user blocked"})
}

// UnblockUser handles unblocking a user.
// POST /api/moderator/unblock_user/:user_id
func (h *ModeratorHandlers) UnblockUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to load user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if !user.IsBlocked {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user is not blocked"})
		return
	}

	if err := h.store.SetBlocked(c.Request.Context(), userID, false); err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to unblock user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("user_id", userID).Str("username", user.Username).Msg("user unblocked")
	c.JSON(http.StatusOK, MessageResponse{Message: "user unblocked"})
}

// CreateChannel handles creating a channel.
// POST /api/moderator/channels
func (h *ModeratorHandlers) CreateChannel(c *gin.Context) {
	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create channel request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "channel name cannot be empty"})
		return
	}

	channel, err := h.store.CreateChannel(c.Request.Context(), name)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "channel already exists"})
			return
		}
		h.log.Error().Err(err).Str("name", name).Msg("failed to create channel")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("channel_id", channel.ID).Str("name", channel.Name).Msg("channel created")
	c.JSON(http.StatusCreated, ChannelResponse{ID: channel.ID, Name: channel.Name})
}

// DeleteChannel handles deleting a channel and everything attached to it.
// DELETE /api/moderator/channels/:channel_id
func (h *ModeratorHandlers) DeleteChannel(c *gin.Context) {
	channelID, err := strconv.ParseInt(c.Param("channel_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid channel id"})
		return
	}

	if err := h.store.DeleteChannel(c.Request.Context(), channelID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "channel not found"})
			return
		}
		h.log.Error().Err(err).Int64("channel_id", channelID).Msg("failed to delete channel")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	// Live connections are not force-closed; their sessions end naturally and
	// their unregister prunes the channel from the registry.
	h.log.Info().
		Int64("channel_id", channelID).
		Int("live_conns", len(h.registry.Snapshot(channelID))).
		Msg("channel deleted")
	c.JSON(http.StatusOK, MessageResponse{Message: "channel deleted"})
}

// AddMember handles adding a user to a channel.
// POST /api/moderator/channels/:channel_id/members/:user_id
func (h *ModeratorHandlers) AddMember(c *gin.Context) {
	channelID, userID, ok := h.memberParams(c)
	if !ok {
		return
	}

	if _, err := h.store.GetChannelByID(c.Request.Context(), channelID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "channel not found"})
			return
		}
		h.log.Error().Err(err).Int64("channel_id", channelID).Msg("failed to load channel")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if _, err := h.store.GetUserByID(c.Request.Context(), userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to load user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := h.store.AddMember(c.Request.Context(), userID, channelID); err != nil {
		h.log.Error().Err(err).Int64("channel_id", channelID).Int64("user_id", userID).Msg("failed to add member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("channel_id", channelID).Int64("user_id", userID).Msg("member added")
	c.JSON(http.StatusOK, MessageResponse{Message: "member added"})
}

// RemoveMember handles removing a user from a channel.
// DELETE /api/moderator/channels/:channel_id/members/:user_id
func (h *ModeratorHandlers) RemoveMember(c *gin.Context) {
	channelID, userID, ok := h.memberParams(c)
	if !ok {
		return
	}

	if err := h.store.RemoveMember(c.Request.Context(), userID, channelID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "membership not found"})
			return
		}
		h.log.Error().Err(err).Int64("channel_id", channelID).Int64("user_id", userID).Msg("failed to remove member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("channel_id", channelID).Int64("user_id", userID).Msg("member removed")
	c.JSON(http.StatusOK, MessageResponse{Message: "member removed"})
}

func (h *ModeratorHandlers) memberParams(c *gin.Context) (channelID, userID int64, ok bool) {
	channelID, err := strconv.ParseInt(c.Param("channel_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid channel id"})
		return 0, 0, false
	}
	userID, err = strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return 0, 0, false
	}
	return channelID, userID, true
}
