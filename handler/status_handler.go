package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/pdf-chat-be/service"
	"github.com/tieubaoca/pdf-chat-be/types"
)

type StatusHandler struct {
	tracker   *service.StatusTracker
	wsService *service.WebSocketService
}

func NewStatusHandler(tracker *service.StatusTracker, wsService *service.WebSocketService) *StatusHandler {
	return &StatusHandler{
		tracker:   tracker,
		wsService: wsService,
	}
}

func (h *StatusHandler) HandleStatus(c *gin.Context) {
	record, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, service.StatusResponseFrom(record))
}

// HandleStatusStream answers 404 for unknown files before upgrading.
func (h *StatusHandler) HandleStatusStream(c *gin.Context) {
	if _, ok := h.lookup(c); !ok {
		return
	}
	h.wsService.StreamStatus(c.Writer, c.Request, c.Param("filename"))
}

func (h *StatusHandler) lookup(c *gin.Context) (*types.StatusRecord, bool) {
	record, err := h.tracker.Get(c.Request.Context(), c.Param("filename"))
	if errors.Is(err, types.ErrNotFound) {
		abortWithDetail(c, http.StatusNotFound, "File not found")
		return nil, false
	}
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	return record, true
}
