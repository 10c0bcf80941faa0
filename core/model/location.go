package model

import "time"

// Location groups parking lots under a single site with a shared timezone.
// All slot math for a lot happens in its location's timezone, never in
// server-local time.
type Location struct {
	ID       string
	Name     string
	Timezone string
}

// Zone resolves the location's IANA timezone.
func (l Location) Zone() (*time.Location, error) {
	return time.LoadLocation(l.Timezone)
}
