package app

import (
	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/observability"
	"github.com/yungbote/fleet-backend/internal/platform/keylock"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
	"github.com/yungbote/fleet-backend/internal/services"
)

type Services struct {
	Boat services.BoatService
	Load services.LoadService
}

func wireServices(store docstore.Store, log *logger.Logger, cfg Config, reposet Repos, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")
	var locks *keylock.Locker
	if cfg.EntityLocksEnabled {
		locks = keylock.New()
	} else {
		log.Warn("Entity locks disabled; concurrent relationship changes may interleave")
	}
	var cascades services.CascadeRecorder
	if metrics != nil {
		cascades = metrics
	}
	boats := services.NewBoatService(store, log, locks, cascades, reposet.Boat, reposet.Load)
	loads := services.NewLoadService(store, log, locks, cascades, reposet.Load, boats)
	return Services{Boat: boats, Load: loads}
}
