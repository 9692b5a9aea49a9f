// Package timedim implements C1: deterministic, pure conversion from an
// epoch-millisecond timestamp to the four canonical calendar-derived
// dimension strings (day, hour, minute, week) in a pinned timezone.
//
// A single Encoder is constructed once at prepare time from the pinned
// timezone name; that same name is recorded as cube-family metadata
// (internal/cubestore) so the run phase can refuse to execute against a
// fallback store built under a different timezone (spec.md §4.1, §7
// StoreError).
package timedim

import (
	"fmt"
	"time"

	"github.com/adcube-dev/adcube/internal/apperr"
)

// Sanity envelope for ts: anything outside this range is almost
// certainly a parsing error upstream rather than a legitimate event,
// and is rejected rather than silently producing a nonsensical date.
// 1970-01-01 through 2100-01-01, in epoch milliseconds.
const (
	minEpochMs int64 = 0
	maxEpochMs int64 = 4102444800000
)

// Encoder converts epoch-ms timestamps to canonical dimension strings in
// a single pinned *time.Location.
type Encoder struct {
	loc  *time.Location
	name string
}

// NewEncoder loads the named IANA timezone once and returns an Encoder
// bound to it. Returns a Config error if the name cannot be resolved.
func NewEncoder(tzName string) (*Encoder, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, apperr.Wrap(apperr.Config, "load timezone "+tzName, err)
	}
	return &Encoder{loc: loc, name: tzName}, nil
}

// Name returns the pinned timezone name, for recording as cube metadata.
func (e *Encoder) Name() string { return e.name }

// Dims holds the four derived calendar dimensions for one timestamp.
type Dims struct {
	Day    string // YYYY-MM-DD
	Hour   string // YYYY-MM-DD HH
	Minute string // YYYY-MM-DD HH:MM
	Week   string // ISO week, YYYY-Www
}

// Encode converts an epoch-millisecond timestamp into its four canonical
// derived dimensions. Returns an Ingest error wrapping ErrTimeDecode if ts
// falls outside the representable sanity envelope.
func (e *Encoder) Encode(tsMs int64) (Dims, error) {
	if tsMs < minEpochMs || tsMs > maxEpochMs {
		return Dims{}, apperr.Wrap(apperr.Ingest, "decode ts", apperr.ErrTimeDecode)
	}
	t := time.UnixMilli(tsMs).In(e.loc)

	day := t.Format("2006-01-02")
	hour := t.Format("2006-01-02 15")
	minute := t.Format("2006-01-02 15:04")

	isoYear, isoWeek := t.ISOWeek()
	week := fmt.Sprintf("%04d-W%02d", isoYear, isoWeek)

	return Dims{Day: day, Hour: hour, Minute: minute, Week: week}, nil
}
