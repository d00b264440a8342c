package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lovenda/seatplan/internal/adapters/presencews"
	"github.com/lovenda/seatplan/internal/config"
	transport "github.com/lovenda/seatplan/internal/transport/http"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware tags every browser with a stable "ct" cookie so
// sessions survive reloads without any login flow.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, h *transport.Handlers, presence *presencews.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("SeatplanSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.POST("/events", h.IngestEvents)

	w := api.Group("/weddings/:weddingID")

	w.GET("/plan", h.GetPlan)
	w.POST("/undo", h.Undo)
	w.POST("/redo", h.Redo)

	w.POST("/tables", h.CreateTable)
	w.PUT("/tables/:tableID/position", h.PlaceTable)
	w.DELETE("/tables/:tableID", h.DeleteTable)
	w.POST("/layout/auto", h.AutoLayout)

	w.PUT("/guests", h.SetGuests)
	w.POST("/assignments", h.Assign)
	w.PUT("/assignments/:guestID", h.Move)
	w.DELETE("/assignments/:guestID", h.Unassign)
	w.POST("/assignments/auto", h.BulkAutoAssign)

	w.PUT("/viewport", h.SetViewport)
	w.PUT("/onboarding/dismiss", h.DismissOnboarding)

	w.GET("/ws/presence", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws presence endpoint hit")
		presence.HandlePresence(ctx, c)
	})

	return r
}
