package app

import (
	"net/netip"

	fleethttp "github.com/yungbote/fleet-backend/internal/http"
	"github.com/yungbote/fleet-backend/internal/observability"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, handlerset Handlers, metrics *observability.Metrics, proxies []netip.Prefix) *fleethttp.Server {
	serviceName := ""
	if cfg.Tracing.Enabled {
		serviceName = cfg.ServiceName
	}
	return fleethttp.NewServer(fleethttp.RouterConfig{
		BoatHandler:    handlerset.Boat,
		LoadHandler:    handlerset.Load,
		HealthHandler:  handlerset.Health,
		Log:            log.With("component", "http"),
		Metrics:        metrics,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		TrustedProxies: proxies,
		ServiceName:    serviceName,
	}, cfg.Addr())
}
