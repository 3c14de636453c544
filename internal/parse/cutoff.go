package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"refeitorio-client/internal/model"
)

var cutoffRe = regexp.MustCompile(`^(\d{1,2})(?::|h)(\d{2})(?::\d{2})?$`)

// Cutoff is an inscription deadline expressed as a time of day.
type Cutoff struct {
	Hour   int
	Minute int
}

func (c Cutoff) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseCutoff reads a "HH:MM" deadline. "HH:MM:SS" and "10h30" are also accepted;
// seconds are dropped.
func ParseCutoff(raw string) (Cutoff, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	m := cutoffRe.FindStringSubmatch(s)
	if m == nil {
		return Cutoff{}, fmt.Errorf("unable to parse cutoff: %q", raw)
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if h > 23 || mm > 59 {
		return Cutoff{}, fmt.Errorf("cutoff out of range: %q", raw)
	}
	return Cutoff{Hour: h, Minute: mm}, nil
}

// ParseShift normalizes the shift names the backend has used.
func ParseShift(raw string) (model.Shift, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "almoco", "almoço":
		return model.ShiftLunch, nil
	case "jantar":
		return model.ShiftDinner, nil
	}
	return "", fmt.Errorf("unknown shift: %q", raw)
}

// CutoffAt combines a slot date (YYYY-MM-DD) and its cutoff into an instant in loc.
func CutoffAt(date, cutoff string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), loc)
	if err != nil {
		// Some payloads carry a full timestamp in "data".
		day, err = time.ParseInLocation("2006-01-02 15:04:05", strings.TrimSpace(date), loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("unable to parse slot date: %q", date)
		}
	}
	c, err := ParseCutoff(cutoff)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, loc), nil
}
