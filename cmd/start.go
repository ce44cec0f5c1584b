/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/tieubaoca/pdf-chat-be/handler"
	"github.com/tieubaoca/pdf-chat-be/service"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// startServerCmd represents the start command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the HTTP server",
	Long:  `Serves document upload, ingestion status, chat and document management over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		cors := handler.NewCorsHandler(a.cfg.CorsOrigins)
		router := handler.SetupRouter(handler.Handlers{
			Cors:     cors,
			Upload:   handler.NewUploadHandler(a.ingest),
			Status:   handler.NewStatusHandler(a.tracker, service.NewWebSocketService(a.tracker, cors.CheckOrigin, 0, a.logger)),
			Chat:     handler.NewChatHandler(a.rag),
			Document: handler.NewDocumentHandler(a.documents),
		}, a.logger)

		srv := &http.Server{
			Addr:              ":" + a.cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("starting server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		a.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(startServerCmd)
}
