// Package datekey provides the canonical calendar-date keys used throughout
// the fetcher.
//
// A key is always the textual form YYYY-MM-DD. Because the layout is
// zero-padded and big-endian, lexicographic ordering of keys equals
// chronological ordering, which the orchestrator relies on when sequencing
// progress events.
package datekey

import (
	"fmt"
	"time"
)

// Layout is the canonical textual form of a date key.
const Layout = "2006-01-02"

// Key is a canonical calendar date (YYYY-MM-DD). Keys compare correctly
// with the built-in string ordering.
type Key string

// Parse validates s and returns it as a Key.
//
// Only the exact canonical layout is accepted; anything else (including
// otherwise-valid dates like "2024-1-2") is rejected so that storage keys
// have a single spelling per day.
func Parse(s string) (Key, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	// time.Parse accepts some non-canonical spellings; round-trip to be strict.
	if canonical := t.Format(Layout); canonical != s {
		return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return Key(s), nil
}

// FromTime returns the key for t in t's location.
func FromTime(t time.Time) Key {
	return Key(t.Format(Layout))
}

// Today returns the key for the current local date.
func Today() Key {
	return FromTime(time.Now())
}

// String returns the canonical textual form.
func (k Key) String() string { return string(k) }

// Time returns the key as a UTC midnight timestamp.
func (k Key) Time() time.Time {
	t, _ := time.Parse(Layout, string(k))
	return t
}

// Year returns the four-digit year, e.g. "2024".
func (k Key) Year() string {
	return fmt.Sprintf("%d", k.Time().Year())
}

// Month returns the proper-case English month name, e.g. "January".
func (k Key) Month() string {
	return k.Time().Month().String()
}

// Range expands the inclusive range [from, to] into one key per day.
//
// Returns an error when from is after to; a single-day range (from == to)
// yields one key.
func Range(from, to Key) ([]Key, error) {
	if from > to {
		return nil, fmt.Errorf("invalid range: %s is after %s", from, to)
	}
	var keys []Key
	for t, end := from.Time(), to.Time(); !t.After(end); t = t.AddDate(0, 0, 1) {
		keys = append(keys, FromTime(t))
	}
	return keys, nil
}
