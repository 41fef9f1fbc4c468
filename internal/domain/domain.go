// Package domain holds the fleet entities (boats and the loads they carry) and the
// error kinds shared by the repositories, services and HTTP layer.
package domain

// Store kinds. They double as the document kind names persisted by every backend.
const (
	KindBoat = "Boats"
	KindLoad = "Loads"
)
