// Package export writes integrated plan rows as CSV or JSON, and the plan
// itself as a standalone HTML chart.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/loadchange/core/energy"
)

// ErrEmpty is returned when there is nothing to export.
var ErrEmpty = errors.New("export: no rows")

// Row is one exported sample. MinuteOffset counts from the earliest row.
type Row struct {
	Time         time.Time `json:"time"`
	MinuteOffset float64   `json:"minute_offset"`
	MW           float64   `json:"mw"`
	Source       string    `json:"source"`
	IsHold       bool      `json:"is_hold"`
}

// Format selects an output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ParseFormat accepts csv, json and html, or a file name with one of those
// extensions.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	switch Format(s) {
	case FormatCSV, FormatJSON, FormatHTML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// WithMinutes adds the minute offset to every row.
func WithMinutes(rows energy.Rows) ([]Row, error) {
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	offsets := energy.MinuteOffsets(rows)
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = Row{
			Time:         r.T,
			MinuteOffset: offsets[i],
			MW:           r.Power,
			Source:       r.Source.String(),
			IsHold:       r.IsHold,
		}
	}
	return out, nil
}

// WriteJSON writes the rows to w as a JSON array.
func WriteJSON(w io.Writer, rows energy.Rows) error {
	out, err := WithMinutes(rows)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteCSV writes the rows to w with a header line.
func WriteCSV(w io.Writer, rows energy.Rows) error {
	out, err := WithMinutes(rows)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "minute_offset", "mw", "source", "is_hold"}); err != nil {
		return err
	}
	for _, r := range out {
		rec := []string{
			r.Time.Format(time.RFC3339),
			strconv.FormatFloat(r.MinuteOffset, 'f', -1, 64),
			strconv.FormatFloat(r.MW, 'f', -1, 64),
			r.Source,
			strconv.FormatBool(r.IsHold),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
