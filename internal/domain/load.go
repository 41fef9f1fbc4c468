package domain

// Carrier is the boat reference stored on an assigned load.
type Carrier struct {
	ID   int64  `json:"id,string"`
	Name string `json:"name"`
	Self string `json:"self"`
}

type Load struct {
	ID           int64    `json:"id,string"`
	Volume       float64  `json:"volume"`
	Item         string   `json:"item"`
	CreationDate string   `json:"creation_date"`
	Carrier      *Carrier `json:"carrier"`
	Self         string   `json:"self"`
}

func (l *Load) Assigned() bool { return l.Carrier != nil }

// CarriedBy reports whether the load's carrier is boatID.
func (l *Load) CarriedBy(boatID int64) bool {
	return l.Carrier != nil && l.Carrier.ID == boatID
}
