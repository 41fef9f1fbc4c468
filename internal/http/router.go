package http

import (
	"net/netip"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/fleet-backend/internal/http/handlers"
	httpMW "github.com/yungbote/fleet-backend/internal/http/middleware"
	"github.com/yungbote/fleet-backend/internal/observability"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type RouterConfig struct {
	BoatHandler   *httpH.BoatHandler
	LoadHandler   *httpH.LoadHandler
	HealthHandler *httpH.HealthHandler

	Log            *logger.Logger
	Metrics        *observability.Metrics
	CORSOrigins    []string
	// TrustedProxies are the peers whose X-Forwarded-* headers are believed.
	TrustedProxies []netip.Prefix
	// ServiceName enables otelgin spans when non-empty.
	ServiceName    string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	proxies := make([]string, 0, len(cfg.TrustedProxies))
	for _, p := range cfg.TrustedProxies {
		proxies = append(proxies, p.String())
	}
	if err := r.SetTrustedProxies(proxies); err != nil && cfg.Log != nil {
		cfg.Log.Warn("Ignoring trusted proxies", "error", err)
	}
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.RequestIdentity())
	r.Use(httpMW.ForwardedProto(cfg.TrustedProxies))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Metrics
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Boats
	if cfg.BoatHandler != nil {
		boats := r.Group("/boats")
		boats.POST("", cfg.BoatHandler.CreateBoat)
		boats.GET("", cfg.BoatHandler.ListBoats)
		boats.GET("/:boat_id", cfg.BoatHandler.GetBoat)
		boats.DELETE("/:boat_id", cfg.BoatHandler.DeleteBoat)
		boats.GET("/:boat_id/loads", cfg.BoatHandler.ListBoatLoads)
		boats.PUT("/:boat_id/loads/:load_id", cfg.BoatHandler.AssignLoad)
		boats.DELETE("/:boat_id/loads/:load_id", cfg.BoatHandler.UnassignLoad)
	}

	// Loads
	if cfg.LoadHandler != nil {
		loads := r.Group("/loads")
		loads.POST("", cfg.LoadHandler.CreateLoad)
		loads.GET("", cfg.LoadHandler.ListLoads)
		loads.GET("/:load_id", cfg.LoadHandler.GetLoad)
		loads.DELETE("/:load_id", cfg.LoadHandler.DeleteLoad)
	}

	return r
}
