// Package instant models a point in time with a mandatory timezone on
// ingress, normalized to UTC internally so comparisons are total.
package instant

import (
	"fmt"
	"time"
)

// Instant wraps a UTC-normalized time.Time. The zero value is invalid; use
// New or Now.
type Instant struct {
	t time.Time
}

// New builds an Instant from t, normalizing to UTC. t is assumed to already
// carry a meaningful zone; use Parse when ingesting a raw string, which is
// the point at which a missing zone offset is actually detectable.
func New(t time.Time) (Instant, error) {
	if t.IsZero() {
		return Instant{}, fmt.Errorf("instant: zero time is not a valid instant")
	}
	return Instant{t: t.UTC()}, nil
}

// Parse ingests a timestamp string that must carry an explicit zone offset
// (RFC3339, e.g. "2021-01-02T15:04:05+01:00" or "...Z"). Attaching a
// timezone to a bare timestamp is the Normalizer's job; Parse is what
// rejects a string that omits one outright.
func Parse(s string) (Instant, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Instant{}, fmt.Errorf("instant: %q does not carry an explicit timezone offset: %w", s, err)
	}
	return New(t)
}

// MustNew is New but panics on error; used for literals in tests.
func MustNew(t time.Time) Instant {
	i, err := New(t)
	if err != nil {
		panic(err)
	}
	return i
}

// Now returns the current Instant.
func Now() Instant {
	return Instant{t: time.Now().UTC()}
}

// Time returns the underlying UTC time.Time.
func (i Instant) Time() time.Time {
	return i.t
}

// Before reports whether i is strictly before o.
func (i Instant) Before(o Instant) bool {
	return i.t.Before(o.t)
}

// After reports whether i is strictly after o.
func (i Instant) After(o Instant) bool {
	return i.t.After(o.t)
}

// Equal reports whether i and o represent the same instant.
func (i Instant) Equal(o Instant) bool {
	return i.t.Equal(o.t)
}

// Before-or-equal is expressed at call sites as !o.Before(i) to avoid an
// extra method.

// AddSmallestIncrement nudges i forward by one nanosecond. Used by trade
// normalizers to break a same-instant tie between a withdrawal and its
// matching deposit (the deposit must sort after).
func (i Instant) AddSmallestIncrement() Instant {
	return Instant{t: i.t.Add(time.Nanosecond)}
}

// Year returns the UTC calendar year.
func (i Instant) Year() int {
	return i.t.Year()
}

// YearDelta computes the calendar-aware year difference used to classify
// short-term vs. long-term disposals: the absolute difference in whole
// years between two civil dates (UTC), where a disposal on or after the
// acquisition's anniversary counts as a full year.
func YearDelta(acquired, disposed Instant) int {
	a, d := acquired.t, disposed.t
	swap := false
	if d.Before(a) {
		a, d = d, a
		swap = true
	}
	years := d.Year() - a.Year()
	anniversary := time.Date(d.Year(), a.Month(), a.Day(), a.Hour(), a.Minute(), a.Second(), a.Nanosecond(), time.UTC)
	if d.Before(anniversary) {
		years--
	}
	if swap {
		years = -years
	}
	return years
}

// IsShortTerm reports whether a disposal at disposed of a lot acquired at
// acquired is short-term under the given threshold (in whole years).
func IsShortTerm(acquired, disposed Instant, thresholdYears int) bool {
	d := YearDelta(acquired, disposed)
	if d < 0 {
		d = -d
	}
	return d < thresholdYears
}

// String renders the instant in RFC3339 for logs and snapshots.
func (i Instant) String() string {
	return i.t.Format(time.RFC3339Nano)
}

// MarshalYAML implements yaml.Marshaler.
func (i Instant) MarshalYAML() (interface{}, error) {
	return i.t.Format(time.RFC3339Nano), nil
}

// UnmarshalYAML implements yaml.Unmarshaler. The zero Instant (e.g. the
// LastSeenTime of an engine that has processed no trade yet) round-trips
// as itself.
func (i *Instant) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	if t.IsZero() {
		*i = Instant{}
		return nil
	}
	parsed, err := New(t)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
