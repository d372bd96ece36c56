package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/auth"
	"github.com/vovakirdan/roomchat-server/internal/config"
	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/store"
)

// Engine is the room broadcast engine as seen by the transport.
type Engine interface {
	Connect(c *core.Client) error
	Handle(ctx context.Context, c *core.Client, cmd core.Command)
	Disconnect(ctx context.Context, c *core.Client)
	History(ctx context.Context, id core.Identity, roomID int64) ([]core.Message, error)
	RoomInfo(ctx context.Context, id core.Identity, roomID int64) (*core.RoomInfo, error)
}

// NewServer builds the HTTP server. REST routes go through gin; /ws is served
// directly by the WebSocket handler.
func NewServer(engine Engine, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	apiHandlers := NewAPIHandlers(authService, logger)
	roomHandlers := NewRoomHandlers(engine, st, logger)
	userHandlers := NewUserHandlers(st, logger)

	api := router.Group("/api")
	{
		api.POST("/register", apiHandlers.Register)
		api.POST("/login", apiHandlers.Login)

		protected := api.Group("")
		protected.Use(AuthMiddleware(authService, logger))
		{
			protected.GET("/me", userHandlers.Me)

			protected.POST("/rooms", roomHandlers.CreateRoom)
			protected.GET("/rooms", roomHandlers.ListRooms)
			protected.GET("/rooms/:id", roomHandlers.GetRoom)
			protected.GET("/rooms/:id/messages", roomHandlers.ListMessages)
			protected.POST("/rooms/:id/members", roomHandlers.AddMember)
		}
	}

	// gin's response writer refuses the upgrade hijack, so /ws bypasses it.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(engine, authService, cfg, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
