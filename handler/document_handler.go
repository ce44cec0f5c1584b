package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/pdf-chat-be/service"
	"github.com/tieubaoca/pdf-chat-be/types"
)

type DocumentHandler struct {
	documentService *service.DocumentService
}

func NewDocumentHandler(documentService *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
	}
}

func (h *DocumentHandler) HandleList(c *gin.Context) {
	docs, err := h.documentService.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.DocumentListResponse{Documents: docs})
}

func (h *DocumentHandler) HandleDelete(c *gin.Context) {
	res, err := h.documentService.Delete(c.Request.Context(), c.Param("document_name"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
