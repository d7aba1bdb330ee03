package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/transitops/fleet-occupancy-service/internal/handlers"
	"github.com/transitops/fleet-occupancy-service/internal/metrics"
	"github.com/transitops/fleet-occupancy-service/internal/occupancy"
	"github.com/transitops/fleet-occupancy-service/internal/store"
	"github.com/transitops/fleet-occupancy-service/internal/ws"
)

// NewRouter wires the full HTTP surface: operational endpoints (health,
// ready, metrics), the REST API and the websocket subscription endpoint.
func NewRouter(st store.Store, svc *occupancy.Service, hub *ws.Hub, m *metrics.Metrics, reg *prometheus.Registry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the store dependency is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterOccupancyRoutes(r, svc, m)
	handlers.RegisterVehicleRoutes(r, st, hub)
	handlers.RegisterStopRoutes(r, st, hub)
	handlers.RegisterAlertRoutes(r, st, hub)
	handlers.RegisterHistoryRoutes(r, st)
	handlers.RegisterDashboardRoutes(r, st)

	// Outbound-only subscription channel; clients resynchronize over the REST
	// API after reconnecting.
	r.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	})

	return r
}
