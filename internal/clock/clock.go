// Package clock abstracts wall time so components that stamp rounds,
// sessions, and journal entries stay deterministic under test.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System is the production Clock. Timestamps are taken in UTC to match the
// ISO-8601 strings written to the JSON files.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time {
	return time.Now().UTC()
}
