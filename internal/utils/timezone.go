package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DisplayZone converts stored UTC timestamps into the fixed offset shown to
// people. Nothing is ever stored in this zone.
type DisplayZone struct {
	loc *time.Location
}

// NewDisplayZone parses offsets of the form "+05:30", "-04:00" or "Z".
func NewDisplayZone(offset string) (*DisplayZone, error) {
	offset = strings.TrimSpace(offset)
	if offset == "" || offset == "Z" || offset == "UTC" {
		return &DisplayZone{loc: time.UTC}, nil
	}
	if len(offset) != 6 || (offset[0] != '+' && offset[0] != '-') || offset[3] != ':' {
		return nil, fmt.Errorf("invalid UTC offset %q", offset)
	}

	hours, err := strconv.Atoi(offset[1:3])
	if err != nil || hours > 14 {
		return nil, fmt.Errorf("invalid UTC offset %q", offset)
	}
	minutes, err := strconv.Atoi(offset[4:6])
	if err != nil || minutes > 59 {
		return nil, fmt.Errorf("invalid UTC offset %q", offset)
	}

	seconds := hours*3600 + minutes*60
	if offset[0] == '-' {
		seconds = -seconds
	}
	return &DisplayZone{loc: time.FixedZone("UTC"+offset, seconds)}, nil
}

// MustDisplayZone is NewDisplayZone for constant offsets
func MustDisplayZone(offset string) *DisplayZone {
	z, err := NewDisplayZone(offset)
	if err != nil {
		panic(err)
	}
	return z
}

func (z *DisplayZone) In(t time.Time) time.Time {
	return t.In(z.loc)
}

// Format renders t in the display zone with a Go layout
func (z *DisplayZone) Format(t time.Time, layout string) string {
	return t.In(z.loc).Format(layout)
}

// FormatPtr renders an optional timestamp, or fallback when it is nil
func (z *DisplayZone) FormatPtr(t *time.Time, layout, fallback string) string {
	if t == nil {
		return fallback
	}
	return z.Format(*t, layout)
}

// Display layouts
const (
	LayoutDateTime = "2006-01-02 15:04:05"
	LayoutClock    = "15:04"
	LayoutLong     = "January 02, 2006 at 03:04 PM"
)

// ParseScheduleTime reads an RFC 3339 timestamp. A trailing Z is accepted and
// timestamps without an offset are taken as UTC. The result is always UTC.
func ParseScheduleTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid schedule timestamp %q", value)
}
