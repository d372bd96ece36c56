package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/roomchat-server/internal/proto"
	"github.com/vovakirdan/roomchat-server/internal/store"
)

// RoomHandlers provides HTTP handlers for room management endpoints.
type RoomHandlers struct {
	engine Engine
	store  store.Store
	log    *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(engine Engine, st store.Store, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		engine: engine,
		store:  st,
		log:    logger,
	}
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	Name string `json:"name" binding:"required,max=64"`
}

// AddMemberRequest represents the add member request body.
type AddMemberRequest struct {
	Username string `json:"username" binding:"required"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Creator   string `json:"creator"`
	CreatedAt string `json:"created_at,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(proto.TimeFormat)
}

func roomToResponse(room *store.Room) RoomResponse {
	return RoomResponse{
		ID:        room.ID,
		Name:      room.Name,
		Creator:   room.CreatorName,
		CreatedAt: formatTime(room.CreatedAt),
	}
}

func roomIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room id"})
		return 0, false
	}
	return id, true
}

// CreateRoom handles room creation. The creator becomes the first member.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room name is required"})
		return
	}

	room, err := h.store.CreateRoom(c.Request.Context(), req.Name, id.UserID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateName):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "room with this name already exists"})
		case errors.Is(err, store.ErrEmptyRoomName):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room name is required"})
		default:
			h.log.Error().Err(err).Str("room_name", req.Name).Msg("failed to create room")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Str("room_name", room.Name).Int64("room_id", room.ID).Int64("creator_id", id.UserID).Msg("room created")
	c.JSON(http.StatusCreated, roomToResponse(room))
}

// ListRooms lists the rooms the caller is a member of.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	rooms, err := h.store.ListRoomsForUser(c.Request.Context(), id.UserID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", id.UserID).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, lo.Map(rooms, func(r *store.Room, _ int) RoomResponse {
		return roomToResponse(r)
	}))
}

// GetRoom returns room metadata for a member.
// GET /api/rooms/:id
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	info, err := h.engine.RoomInfo(c.Request.Context(), id, roomID)
	if err != nil {
		h.respondEngineError(c, err, roomID)
		return
	}
	c.JSON(http.StatusOK, roomInfoToProto(info))
}

// ListMessages returns the full history of a room for a member.
// GET /api/rooms/:id/messages
func (h *RoomHandlers) ListMessages(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	msgs, err := h.engine.History(c.Request.Context(), id, roomID)
	if err != nil {
		h.respondEngineError(c, err, roomID)
		return
	}
	c.JSON(http.StatusOK, messagesToProto(msgs))
}

// AddMember grants a user membership. Only the room creator may do this.
// POST /api/rooms/:id/members
func (h *RoomHandlers) AddMember(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "username is required"})
		return
	}

	ctx := c.Request.Context()
	room, err := h.store.GetRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to load room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if room.CreatorID != id.UserID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only the room creator can add members"})
		return
	}

	user, err := h.store.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("failed to load user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := h.store.AddMember(ctx, user.ID, roomID); err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Int64("user_id", user.ID).Msg("failed to add member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("room_id", roomID).Str("member", user.Username).Msg("member added")
	c.Status(http.StatusNoContent)
}

func (h *RoomHandlers) respondEngineError(c *gin.Context, err error, roomID int64) {
	status, msg := statusForCoreError(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("room read failed")
	}
	c.JSON(status, ErrorResponse{Error: msg})
}
