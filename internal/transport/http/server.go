package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chantalk-server/internal/auth"
	"github.com/vovakirdan/chantalk-server/internal/config"
	"github.com/vovakirdan/chantalk-server/internal/core"
	"github.com/vovakirdan/chantalk-server/internal/service/access"
	"github.com/vovakirdan/chantalk-server/internal/store"
)

// NewServer builds the HTTP server: REST endpoints, moderator endpoints, and
// the channel websocket entry point.
func NewServer(registry *core.Registry, broadcaster *core.Broadcaster, authService *auth.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger))

	gate := access.NewGate(authService, st)
	policy := access.NewPolicy(st)
	recorder := access.NewRecorder(st)

	apiHandlers := NewAPIHandlers(authService, logger)
	messageHandlers := NewMessageHandlers(st, policy, logger)
	moderatorHandlers := NewModeratorHandlers(st, registry, logger)
	wsHandler := NewWSHandler(registry, broadcaster, gate, policy, recorder, logger)

	r.GET("/health", healthHandler)
	r.GET("/ws/:channel_id", wsHandler.Serve)

	api := r.Group("/api")
	{
		api.POST("/register", apiHandlers.Register)
		api.POST("/login", apiHandlers.Login)

		authed := api.Group("")
		authed.Use(AuthMiddleware(authService, logger))
		{
			authed.GET("/messages/:channel_id", messageHandlers.List)
		}

		moderator := api.Group("/moderator")
		moderator.Use(AuthMiddleware(authService, logger), RequireModerator(st, logger))
		{
			moderator.POST("/block_user/:user_id", moderatorHandlers.BlockUser)
			moderator.POST("/unblock_user/:user_id", moderatorHandlers.UnblockUser)
			moderator.POST("/channels", moderatorHandlers.CreateChannel)
			moderator.DELETE("/channels/:channel_id", moderatorHandlers.DeleteChannel)
			moderator.POST("/channels/:channel_id/members/:user_id", moderatorHandlers.AddMember)
			moderator.DELETE("/channels/:channel_id/members/:user_id", moderatorHandlers.RemoveMember)
		}
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	fmt.Fprint(c.Writer, "ok")
}
