package cube

import (
	"strconv"
	"strings"

	"github.com/adcube-dev/adcube/internal/event"
)

// keySep separates key components when joining a dimension tuple into a
// single map key. 0x1f (unit separator) cannot appear in any dimension
// value (time strings, country codes, numeric ids, event-type names).
const keySep = "\x1f"

// columnGetter returns the string representation of dimension column
// name's value at row i of b. Supported columns are exactly the ones
// that appear in the closed cube family (spec.md §3.3).
func columnGetter(name string) (func(b *event.Batch, i int) string, bool) {
	switch name {
	case "day":
		return func(b *event.Batch, i int) string { return b.Day[i] }, true
	case "hour":
		return func(b *event.Batch, i int) string { return b.Hour[i] }, true
	case "minute":
		return func(b *event.Batch, i int) string { return b.Minute[i] }, true
	case "week":
		return func(b *event.Batch, i int) string { return b.Week[i] }, true
	case "type":
		return func(b *event.Batch, i int) string { return b.Type[i].String() }, true
	case "country":
		return func(b *event.Batch, i int) string { return b.Country[i] }, true
	case "advertiser_id":
		return func(b *event.Batch, i int) string { return strconv.FormatInt(b.AdvertiserID[i], 10) }, true
	case "publisher_id":
		return func(b *event.Batch, i int) string { return strconv.FormatInt(b.PublisherID[i], 10) }, true
	default:
		return nil, false
	}
}

// joinKey builds the map key for a dimension tuple.
func joinKey(values []string) string {
	return strings.Join(values, keySep)
}

// JoinKey exposes joinKey for callers (e.g. internal/cubestore) that
// reconstruct cube rows from an external representation and must use
// the same map key convention.
func JoinKey(values []string) string { return joinKey(values) }

// coalesceKey implements the critical outer-join key-coalesce invariant
// of spec.md §4.3: after merging two rows that map to the same key, the
// merged key's components must be the coalesce (first non-empty) of the
// two sides, and must contain no empty component. Since both sides are
// only ever merged under an identical map key, a and b are expected to
// already agree component-wise; this still performs the coalesce and
// verifies the result has no empty (NULL-surfaced) component, exactly
// as spec.md §8 property 4 requires to be checked.
func coalesceKey(a, b []string) ([]string, bool) {
	out := make([]string, len(a))
	for i := range a {
		v := a[i]
		if v == "" {
			v = b[i]
		}
		if v == "" {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
