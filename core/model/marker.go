package model

import (
	"sort"
	"time"
)

// MarkerKind enumerates the derived instants of interest on a plan.
type MarkerKind int

const (
	MarkerReached429 MarkerKind = iota
	MarkerPostPause
	MarkerHoldStart
	MarkerHoldComplete
	MarkerFinalLoad
	MarkerOverrideComplete
	MarkerFreeze
)

// MarkerKinds lists every kind in display order.
var MarkerKinds = []MarkerKind{
	MarkerReached429,
	MarkerPostPause,
	MarkerHoldStart,
	MarkerHoldComplete,
	MarkerFinalLoad,
	MarkerOverrideComplete,
	MarkerFreeze,
}

// String returns the stable identifier used in config files and exports.
func (k MarkerKind) String() string {
	switch k {
	case MarkerReached429:
		return "429_reached"
	case MarkerPostPause:
		return "post_pause"
	case MarkerHoldStart:
		return "hold_start"
	case MarkerHoldComplete:
		return "hold_complete"
	case MarkerFinalLoad:
		return "final_load"
	case MarkerOverrideComplete:
		return "override_complete"
	case MarkerFreeze:
		return "freeze"
	default:
		return "unknown"
	}
}

// ParseMarkerKind is the inverse of String.
func ParseMarkerKind(s string) (MarkerKind, bool) {
	for _, k := range MarkerKinds {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// MarshalText implements encoding.TextMarshaler so markers can key JSON maps.
func (k MarkerKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Markers maps a kind to its instant. Absent kinds were not reached.
type Markers map[MarkerKind]time.Time

// Get returns the instant of k, if set.
func (m Markers) Get(k MarkerKind) (time.Time, bool) {
	t, ok := m[k]
	if !ok || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

// Set records k at t. A zero t removes the marker.
func (m Markers) Set(k MarkerKind, t time.Time) {
	if t.IsZero() {
		delete(m, k)
		return
	}
	m[k] = t
}

// Until returns the markers at or before cutoff.
func (m Markers) Until(cutoff time.Time) Markers {
	out := Markers{}
	for k, t := range m {
		if !t.After(cutoff) {
			out[k] = t
		}
	}
	return out
}

// Clone returns an independent copy.
func (m Markers) Clone() Markers {
	out := make(Markers, len(m))
	for k, t := range m {
		out[k] = t
	}
	return out
}

// Sorted returns the kinds present ordered by instant, ties broken by kind.
func (m Markers) Sorted() []MarkerKind {
	out := make([]MarkerKind, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := m[out[i]], m[out[j]]
		if ti.Equal(tj) {
			return out[i] < out[j]
		}
		return ti.Before(tj)
	})
	return out
}
