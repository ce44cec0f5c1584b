package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/pdf-chat-be/service"
	"github.com/tieubaoca/pdf-chat-be/types"
)

type ChatHandler struct {
	ragService *service.RAGService
}

func NewChatHandler(ragService *service.RAGService) *ChatHandler {
	return &ChatHandler{
		ragService: ragService,
	}
}

func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req types.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithDetail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.ragService.Answer(c.Request.Context(), req.Query)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
