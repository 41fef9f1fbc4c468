package domain

// LoadRef is the entry a boat keeps for every load it carries.
type LoadRef struct {
	ID   int64  `json:"id,string"`
	Self string `json:"self"`
}

type Boat struct {
	ID     int64     `json:"id,string"`
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	Length float64   `json:"length"`
	Loads  []LoadRef `json:"loads"`
	Self   string    `json:"self"`
}

// HasLoad reports whether loadID is listed on the boat.
func (b *Boat) HasLoad(loadID int64) bool {
	for _, ref := range b.Loads {
		if ref.ID == loadID {
			return true
		}
	}
	return false
}

// AddLoad appends a reference for l.
func (b *Boat) AddLoad(l *Load) {
	b.Loads = append(b.Loads, LoadRef{ID: l.ID, Self: l.Self})
}

// RemoveLoad drops every entry with loadID and reports whether one was present.
func (b *Boat) RemoveLoad(loadID int64) bool {
	kept := make([]LoadRef, 0, len(b.Loads))
	removed := false
	for _, ref := range b.Loads {
		if ref.ID == loadID {
			removed = true
			continue
		}
		kept = append(kept, ref)
	}
	b.Loads = kept
	return removed
}

// AsCarrier is the reference stored on a load carried by this boat.
func (b *Boat) AsCarrier() *Carrier {
	return &Carrier{ID: b.ID, Name: b.Name, Self: b.Self}
}
