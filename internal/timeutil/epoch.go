// Package timeutil converts the raw epoch encodings found in macOS and
// browser history databases into absolute time values.
//
// Each source system gets its own named type so a raw value cannot be
// compared against wall-clock time without an explicit conversion, and a
// converted value cannot accidentally be converted twice.
package timeutil

import (
	"math"
	"time"
)

// CocoaEpochOffset is the number of seconds between the Unix epoch and the
// Core Data reference date (2001-01-01 00:00:00 UTC). knowledgeC.db and
// Safari's History.db store timestamps relative to this date.
const CocoaEpochOffset int64 = 978307200

// ChromeEpochOffset is the number of seconds between 1601-01-01 00:00:00 UTC
// (the Windows FILETIME epoch Chrome inherited) and the Unix epoch.
const ChromeEpochOffset int64 = 11644473600

// CocoaSeconds is a raw timestamp in seconds since the Core Data reference
// date. The fractional part carries sub-second precision.
type CocoaSeconds float64

// Time converts the raw value to an absolute timestamp. A zero value has no
// meaning in the source databases and converts to the zero time.
func (s CocoaSeconds) Time() time.Time {
	if s == 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(float64(s))
	return time.Unix(int64(sec)+CocoaEpochOffset, int64(frac*float64(time.Second)))
}

// CocoaFromTime converts an absolute timestamp into Cocoa seconds, for use in
// query bounds. The zero time maps back to zero.
func CocoaFromTime(t time.Time) CocoaSeconds {
	if t.IsZero() {
		return 0
	}
	return CocoaSeconds(float64(t.UnixNano())/float64(time.Second) - float64(CocoaEpochOffset))
}

// ChromeMicros is a raw timestamp in microseconds since 1601-01-01 UTC, the
// encoding used by Chrome, Brave and other Chromium history databases.
type ChromeMicros int64

// Time converts the raw value to an absolute timestamp. Zero converts to the
// zero time.
func (m ChromeMicros) Time() time.Time {
	if m == 0 {
		return time.Time{}
	}
	return time.UnixMicro(int64(m) - ChromeEpochOffset*1_000_000)
}

// ChromeFromTime converts an absolute timestamp into Chrome microseconds.
func ChromeFromTime(t time.Time) ChromeMicros {
	if t.IsZero() {
		return 0
	}
	return ChromeMicros(t.UnixMicro() + ChromeEpochOffset*1_000_000)
}

// FirefoxMicros is a raw timestamp in microseconds since the Unix epoch, the
// encoding used by Firefox's places.sqlite.
type FirefoxMicros int64

// Time converts the raw value to an absolute timestamp. Zero converts to the
// zero time.
func (m FirefoxMicros) Time() time.Time {
	if m == 0 {
		return time.Time{}
	}
	return time.UnixMicro(int64(m))
}

// FirefoxFromTime converts an absolute timestamp into Firefox microseconds.
func FirefoxFromTime(t time.Time) FirefoxMicros {
	if t.IsZero() {
		return 0
	}
	return FirefoxMicros(t.UnixMicro())
}
