package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rbschat/gateway/internal/store"
)

// RoomHandlers provides read-only REST endpoints over rooms and history.
type RoomHandlers struct {
	store        store.Store
	historyLimit int
	log          *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(st store.Store, historyLimit int, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		store:        st,
		historyLimit: historyLimit,
		log:          logger,
	}
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	RoomID    string `json:"room_id"`
	Creator   string `json:"creator"`
	CreatedAt string `json:"created_at"`
}

// MessageResponse represents a persisted message in API responses.
type MessageResponse struct {
	Username  string `json:"username"`
	Content   string `json:"content"`
	RoomID    string `json:"room_id"`
	Timestamp string `json:"timestamp"`
	System    bool   `json:"system"`
}

// GetRoom handles room lookups.
// GET /api/rooms/:room_id
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	roomID := c.Param("room_id")

	room, err := h.store.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to get room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, RoomResponse{
		RoomID:    room.ID,
		Creator:   room.Creator,
		CreatedAt: room.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

// GetMessages handles history reads, newest messages first capped by limit,
// returned oldest first like the websocket replay.
// GET /api/rooms/:room_id/messages?limit=
func (h *RoomHandlers) GetMessages(c *gin.Context) {
	roomID := c.Param("room_id")

	if _, err := h.store.GetRoom(c.Request.Context(), roomID); err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to get room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	limit := h.historyLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	msgs, err := h.store.RecentMessages(c.Request.Context(), roomID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		response = append(response, MessageResponse{
			Username:  msg.Username,
			Content:   msg.Content,
			RoomID:    msg.RoomID,
			Timestamp: msg.Timestamp.UTC().Format(time.RFC3339Nano),
			System:    msg.System,
		})
	}

	c.JSON(http.StatusOK, response)
}
