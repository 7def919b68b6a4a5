// Package timeline cuts and splices load series so that a frozen or
// overridden plan is rendered and integrated without gaps.
package timeline

import (
	"time"

	"github.com/kilianp07/loadchange/core/model"
)

// Trim keeps the points at or before cutoff and welds a synthetic point at
// exactly cutoff when the last kept point is earlier. The result always ends at
// cutoff. An empty input returns nil.
func Trim(s model.Series, cutoff time.Time) model.Series {
	if len(s) == 0 {
		return nil
	}
	out := make(model.Series, 0, len(s)+1)
	for _, p := range s {
		if p.T.After(cutoff) {
			break
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return model.Series{{T: cutoff, Power: s[0].Power}}
	}
	if last := out[len(out)-1]; last.T.Before(cutoff) {
		out = append(out, model.Point{T: cutoff, Power: last.Power})
	}
	return out
}

// Join keeps the points at or after start and makes the series begin at
// (start, power): a synthetic point is prepended when the first kept point is
// later, and a point exactly at start has its power overwritten. When nothing
// survives the result is the single point (start, power).
func Join(s model.Series, start time.Time, power float64) model.Series {
	out := make(model.Series, 0, len(s)+1)
	for _, p := range s {
		if p.T.Before(start) {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return model.Series{{T: start, Power: power}}
	}
	if out[0].T.After(start) {
		out = append(model.Series{{T: start, Power: power}}, out...)
	} else if out[0].Power != power {
		out[0].Power = power
	}
	return out
}

// Bridge returns the flat segment linking a trim cutoff to a later join start
// at the shared boundary power. It is nil when both instants coincide.
func Bridge(cutoff, start time.Time, power float64) model.Series {
	if !start.After(cutoff) {
		return nil
	}
	return model.Series{{T: cutoff, Power: power}, {T: start, Power: power}}
}

// Weld trims main at cutoff, joins next at start and inserts the bridge
// between them. The boundary power is used on both sides of the seam. A start
// earlier than cutoff is moved to cutoff.
func Weld(main, next model.Series, cutoff, start time.Time, power float64) model.Series {
	if start.Before(cutoff) {
		start = cutoff
	}
	head := Trim(main, cutoff)
	if len(head) > 0 {
		head[len(head)-1].Power = power
	}
	tail := Join(next, start, power)
	out := make(model.Series, 0, len(head)+len(tail)+1)
	out = append(out, head...)
	if b := Bridge(cutoff, start, power); b != nil {
		if len(out) == 0 {
			out = append(out, b[0])
		}
		out = append(out, b[1])
		tail = tail[1:]
	}
	if len(out) > 0 && len(tail) > 0 && out[len(out)-1].T.Equal(tail[0].T) {
		tail = tail[1:]
	}
	return append(out, tail...)
}

// Top returns the series an operator currently sees on top: the joined plan
// when one exists, else the main profile.
func Top(main, joined model.Series) model.Series {
	if len(joined) > 0 {
		return joined
	}
	return main
}

// Continuous reports whether consecutive points never jump in power across a
// zero-length interval and time never decreases. It is the property the
// welded series must hold.
func Continuous(s model.Series) bool {
	for i := 1; i < len(s); i++ {
		if s[i].T.Before(s[i-1].T) {
			return false
		}
		if s[i].T.Equal(s[i-1].T) && s[i].Power != s[i-1].Power {
			return false
		}
	}
	return true
}
