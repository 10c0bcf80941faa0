package timeslot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/parkcast/parkcast/core/model"
)

// OpenWindow is a lot's opening hours expressed as minutes from local
// midnight. Open or Close below zero means the bound is unknown.
type OpenWindow struct {
	Always bool
	Open   int
	Close  int
}

// WindowForLot builds the open window for a lot. Unparseable or missing
// times degrade to an always-open window rather than failing the lot.
func WindowForLot(lot model.Lot) OpenWindow {
	if lot.Is24h || lot.OpenTime == "" || lot.CloseTime == "" {
		return OpenWindow{Always: true, Open: -1, Close: -1}
	}
	open, errO := ParseMinuteOfDay(lot.OpenTime)
	close, errC := ParseMinuteOfDay(lot.CloseTime)
	if errO != nil || errC != nil {
		return OpenWindow{Always: true, Open: -1, Close: -1}
	}
	return OpenWindow{Open: open, Close: close}
}

// Contains reports whether the given minute of day falls inside the window.
// A window that closes after midnight wraps; open == close means the lot
// never opens.
func (w OpenWindow) Contains(minuteOfDay int) bool {
	if w.Always || w.Open < 0 || w.Close < 0 {
		return true
	}
	switch {
	case w.Close > w.Open:
		return minuteOfDay >= w.Open && minuteOfDay < w.Close
	case w.Close < w.Open:
		return minuteOfDay >= w.Open || minuteOfDay < w.Close
	default:
		return false
	}
}

// ParseMinuteOfDay parses "HH:MM" or "HH:MM:SS" (an optional trailing UTC
// offset, as emitted for timetz columns, is ignored) into minutes from
// midnight.
func ParseMinuteOfDay(s string) (int, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "+-"); i > 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return h*60 + m, nil
}
