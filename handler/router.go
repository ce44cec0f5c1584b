package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tieubaoca/pdf-chat-be/middleware"
	"github.com/tieubaoca/pdf-chat-be/utils"
	"go.uber.org/zap"
)

type Handlers struct {
	Cors     *CorsHandler
	Upload   *UploadHandler
	Status   *StatusHandler
	Chat     *ChatHandler
	Document *DocumentHandler
}

func SetupRouter(h Handlers, logger *zap.Logger) *gin.Engine {
	logger = utils.OrNop(logger)

	router := gin.New()
	router.Use(middleware.ZapRecovery(logger))
	router.Use(middleware.ZapLogger(logger))
	router.Use(middleware.Metrics())
	router.Use(h.Cors.CorsMiddleware)

	router.GET("/", HandleRoot)
	router.GET("/health", HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/upload", h.Upload.UploadDocumentHandler)
		api.GET("/embedding-status/:filename", h.Status.HandleStatus)
		api.GET("/embedding-status/:filename/ws", h.Status.HandleStatusStream)
		api.POST("/chat", h.Chat.HandleChat)
		api.GET("/documents", h.Document.HandleList)
		api.DELETE("/documents/:document_name", h.Document.HandleDelete)
	}

	return router
}
