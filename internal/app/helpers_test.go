package app

import "github.com/yungbote/fleet-backend/internal/data/docstore/boltstore"

func boltOptions(path string) boltstore.Options {
	return boltstore.Options{Path: path, Testing: true}
}
