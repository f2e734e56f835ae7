package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rbschat/gateway/internal/config"
	"github.com/rbschat/gateway/internal/core"
	"github.com/rbschat/gateway/internal/store"
)

// NewServer builds the HTTP server: health, the websocket endpoint, and the
// REST room surface behind bearer auth.
func NewServer(handler *core.Handler, verifier core.CredentialVerifier, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	limiter := newRateLimiter(cfg.ConnectionsPerMinute)
	limiter.startReset(make(chan struct{}))

	wsHandler := NewWSHandler(handler, limiter, logger)
	router.GET("/ws/:room_id", wsHandler.Handle)

	roomHandlers := NewRoomHandlers(st, cfg.HistoryLimit, logger)
	api := router.Group("/api", AuthMiddleware(verifier, logger))
	{
		api.GET("/rooms/:room_id", roomHandlers.GetRoom)
		api.GET("/rooms/:room_id/messages", roomHandlers.GetMessages)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
