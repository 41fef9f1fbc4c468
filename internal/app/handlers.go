package app

import (
	"github.com/yungbote/fleet-backend/internal/data/docstore"
	httpH "github.com/yungbote/fleet-backend/internal/http/handlers"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type Handlers struct {
	Boat   *httpH.BoatHandler
	Load   *httpH.LoadHandler
	Health *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, store docstore.Store, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	var pinger docstore.Pinger
	if p, ok := store.(docstore.Pinger); ok {
		pinger = p
	}
	return Handlers{
		Boat:   httpH.NewBoatHandler(serviceset.Boat),
		Load:   httpH.NewLoadHandler(serviceset.Load),
		Health: httpH.NewHealthHandler(pinger, log.With("handler", "HealthHandler")),
	}
}
