package http

import (
	"net/http"

	"callroom/internal/core/ports"
	apperrors "callroom/pkg/errors"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	rooms ports.RoomService
}

func NewRoomHandler(rooms ports.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// SetupRoutes mounts the room endpoints on an already authenticated group.
func (h *RoomHandler) SetupRoutes(api *gin.RouterGroup) {
	api.GET("/rooms/code", h.GenerateCode)
}

// GenerateCode hands out a fresh room code for a client to create a room with.
func (h *RoomHandler) GenerateCode(c *gin.Context) {
	code, err := h.rooms.GenerateCode()
	if err != nil {
		c.Error(apperrors.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":     int(apperrors.CodeSuccess),
		"message":  apperrors.CodeSuccess.Message(),
		"roomCode": code,
	})
}
