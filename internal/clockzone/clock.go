// Package clockzone resolves the agent's configured timezone and exposes
// monotonic-safe wall-clock accessors (spec §4.1). The configured zone
// defines the semantic meaning of every job's (hour, minute).
package clockzone

import (
	"log/slog"
	"time"
)

// wellKnownOffsets backstops a handful of named zones with a fixed UTC
// offset when the IANA tzdata database isn't installed on the host — the
// same fallback the original agent used for Asia/Seoul specifically.
var wellKnownOffsets = map[string]int{
	"Asia/Seoul": 9 * 3600,
}

// Clock resolves "now" in a configured local timezone and converts local
// instants to the UTC scheduled-minute representation used throughout the
// store (spec glossary: "scheduled minute").
type Clock struct {
	loc *time.Location
}

// New resolves zoneName through the fallback ladder described in spec §4.1:
// named IANA zone -> fixed UTC offset for a well-known name -> system local
// -> UTC. It never returns an error — it always yields a usable Clock.
func New(zoneName string, logger *slog.Logger) *Clock {
	if logger == nil {
		logger = slog.Default()
	}
	if loc, err := time.LoadLocation(zoneName); err == nil {
		return &Clock{loc: loc}
	}
	if offset, ok := wellKnownOffsets[zoneName]; ok {
		logger.Warn("tzdata unavailable, using fixed offset fallback", "zone", zoneName)
		return &Clock{loc: time.FixedZone(zoneName, offset)}
	}
	if _, err := time.LoadLocation(""); err == nil {
		logger.Warn("unknown timezone, falling back to system local", "zone", zoneName)
		return &Clock{loc: time.Local}
	}
	logger.Warn("unknown timezone and no system local, falling back to UTC", "zone", zoneName)
	return &Clock{loc: time.UTC}
}

// Location returns the resolved timezone.
func (c *Clock) Location() *time.Location { return c.loc }

// NowLocal returns the current instant in the configured zone.
func (c *Clock) NowLocal() time.Time { return time.Now().In(c.loc) }

// NowUTC returns the current instant in UTC.
func (c *Clock) NowUTC() time.Time { return time.Now().UTC() }

// ToUTCMinute truncates seconds/microseconds off local and converts it to
// UTC — the representation stored as JobRun.ScheduledFor and
// Machine.LastOnlineMinute (spec §4.1, glossary "scheduled minute").
func ToUTCMinute(local time.Time) time.Time {
	t := local.Truncate(time.Minute)
	return t.UTC()
}

// LocalMinute zeroes seconds/microseconds on a local time without changing
// its zone — used by the job index when producing next-fire results (§4.4).
func LocalMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}
