package app

import (
	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/data/repos"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type Repos struct {
	Boat repos.BoatRepo
	Load repos.LoadRepo
}

func wireRepos(store docstore.Store, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Boat: repos.NewBoatRepo(store, log),
		Load: repos.NewLoadRepo(store, log),
	}
}
