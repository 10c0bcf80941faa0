package model

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Lot describes a parking lot and its open-hours window.
// OpenTime and CloseTime are local times of day ("HH:MM" or "HH:MM:SS");
// empty strings mean the bound is unknown and the lot is treated as always
// open unless Is24h says otherwise.
type Lot struct {
	ID         string
	LocationID string
	Name       string
	SpotCount  int
	OpenTime   string
	CloseTime  string
	Is24h      bool
	Coord      Coordinate
}
