package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/pdf-chat-be/types"
)

func HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{Status: "healthy"})
}

func HandleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, types.MessageResponse{Message: "Backend is running"})
}
