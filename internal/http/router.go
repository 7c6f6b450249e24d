// README: HTTP route wiring for the pooling API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"hubpool/internal/http/handlers"
	"hubpool/internal/http/middleware"
	"hubpool/internal/modules/ride"
	"hubpool/internal/types"
)

// NewRouter assembles the gin engine with all API routes and middleware.
// travel may be nil when no maps API key is configured.
func NewRouter(svc *ride.Service, travel handlers.TravelEstimator, hub types.Point, limits handlers.BookingLimits, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log), middleware.Metrics())

	rides := handlers.NewRideHandler(svc, travel, hub, limits)
	groups := handlers.NewGroupHandler(svc)

	api := r.Group("/api")
	{
		api.POST("/rides/request", rides.Book)
		api.POST("/rides/:id/cancel", rides.Cancel)
		api.GET("/rides/:id", rides.Get)
		api.GET("/groups", groups.ListForming)
		api.GET("/groups/:id", groups.Get)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
