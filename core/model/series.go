package model

import "time"

// Point is one sample of the load trajectory.
type Point struct {
	T     time.Time `json:"t"`
	Power float64   `json:"mw"`
}

// Series is an ordered, time-monotonic sequence of points.
type Series []Point

// Source tags where a series originates from.
type Source int

const (
	SourceMain Source = iota
	SourceJoined
)

// String returns "main" or "joined".
func (s Source) String() string {
	switch s {
	case SourceMain:
		return "main"
	case SourceJoined:
		return "joined"
	default:
		return "unknown"
	}
}

// Role annotates a segment point inside a composed plan.
type Role int

const (
	RoleRamp Role = iota
	RoleHoldStart
	RoleHoldEnd
)

// String returns the role tag.
func (r Role) String() string {
	switch r {
	case RoleRamp:
		return "ramp"
	case RoleHoldStart:
		return "hold_start"
	case RoleHoldEnd:
		return "hold_end"
	default:
		return "unknown"
	}
}

// Segment is a point annotated with its role in the joined plan.
type Segment struct {
	Point
	Role Role `json:"role"`
}

// Empty reports whether the series holds no point.
func (s Series) Empty() bool { return len(s) == 0 }

// First returns the first point. ok is false on an empty series.
func (s Series) First() (Point, bool) {
	if len(s) == 0 {
		return Point{}, false
	}
	return s[0], true
}

// Last returns the last point. ok is false on an empty series.
func (s Series) Last() (Point, bool) {
	if len(s) == 0 {
		return Point{}, false
	}
	return s[len(s)-1], true
}

// Clone returns an independent copy.
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// ValueAt returns the linearly interpolated power at t. Instants before the
// first point or after the last point are clamped to the end values. ok is
// false only for an empty series.
func (s Series) ValueAt(t time.Time) (float64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	if !t.After(s[0].T) {
		return s[0].Power, true
	}
	last := s[len(s)-1]
	if !t.Before(last.T) {
		return last.Power, true
	}
	for i := 0; i < len(s)-1; i++ {
		p0, p1 := s[i], s[i+1]
		if t.Before(p0.T) || t.After(p1.T) {
			continue
		}
		span := p1.T.Sub(p0.T)
		if span <= 0 {
			return p0.Power, true
		}
		frac := float64(t.Sub(p0.T)) / float64(span)
		return p0.Power + (p1.Power-p0.Power)*frac, true
	}
	return last.Power, true
}

// SeriesFromSegments drops the role tags.
func SeriesFromSegments(segs []Segment) Series {
	if len(segs) == 0 {
		return nil
	}
	out := make(Series, len(segs))
	for i, sg := range segs {
		out[i] = sg.Point
	}
	return out
}
