package sesh

import "time"

// Record pairs stored session data with its absolute expiration instant.
// TTL is always an absolute wall-clock time, never a relative duration --
// stores compare it against "now" directly.
type Record[T any] struct {
	Data T
	TTL  time.Time
}

// Expired reports whether the record's TTL has passed relative to now.
func (r Record[T]) Expired(now time.Time) bool {
	return now.After(r.TTL)
}

// UnixTimestamp returns the record's TTL as seconds since the Unix epoch,
// the form every store backend puts on the wire.
func (r Record[T]) UnixTimestamp() int64 {
	return r.TTL.Unix()
}

// Normalize truncates the TTL to whole seconds and converts it to UTC.
// Store backends round-trip TTLs through wire formats (Unix seconds, SQL
// TIMESTAMP columns) that don't preserve sub-second precision or the
// original zone, so tests compare normalized records rather than raw ones.
func (r Record[T]) Normalize() Record[T] {
	return Record[T]{
		Data: r.Data,
		TTL:  time.Unix(r.TTL.Unix(), 0).UTC(),
	}
}
