package power

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/genricoloni/nowshowing/internal/domain"
)

// DefaultTimezone is the reference zone of the power window
const DefaultTimezone = "America/New_York"

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" into an offset from midnight
func ParseTimeOfDay(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}

	limits := []int{23, 59, 59}
	units := []time.Duration{time.Hour, time.Minute, time.Second}

	var offset time.Duration
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 || v > limits[i] || len(part) > 2 {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		offset += time.Duration(v) * units[i]
	}
	return offset, nil
}

// IsOnTime reports whether now, seen in loc, falls inside [start, end).
// An end before the start describes a window crossing midnight. Empty,
// unparseable or equal bounds are never on time.
func IsOnTime(now time.Time, start, end string, loc *time.Location) bool {
	from, err := ParseTimeOfDay(start)
	if err != nil {
		return false
	}
	to, err := ParseTimeOfDay(end)
	if err != nil {
		return false
	}
	if from == to {
		return false
	}

	local := now.In(loc)
	t := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second

	if from < to {
		return t >= from && t < to
	}
	return t >= from || t < to
}

// Gate downgrades "on" to "standby" outside the configured window
type Gate struct {
	loc *time.Location
	now func() time.Time
}

// NewGate creates a gate for the given IANA timezone
func NewGate(timezone string) (*Gate, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &Gate{loc: loc, now: time.Now}, nil
}

// Apply returns the command to actually send
func (g *Gate) Apply(cmd domain.PowerCommand, start, end string) domain.PowerCommand {
	if cmd == domain.PowerOn && !IsOnTime(g.now(), start, end, g.loc) {
		return domain.PowerStandby
	}
	return cmd
}
