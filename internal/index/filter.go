package index

import (
	"fmt"
	"strconv"

	"github.com/hyperjump/curio/internal/models"
)

// Predicate decides whether a record is a search candidate.
type Predicate func(*models.ImageRecord) bool

// All returns a predicate that accepts every record.
func All() Predicate {
	return func(*models.ImageRecord) bool { return true }
}

// And combines predicates; the result accepts a record only when all do.
func And(preds ...Predicate) Predicate {
	return func(rec *models.ImageRecord) bool {
		for _, p := range preds {
			if !p(rec) {
				return false
			}
		}
		return true
	}
}

// Exclude returns a predicate rejecting the given IDs (images already placed
// on the canvas are not search candidates).
func Exclude(ids []int64) Predicate {
	if len(ids) == 0 {
		return All()
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(rec *models.ImageRecord) bool {
		_, excluded := set[rec.ID]
		return !excluded
	}
}

// IDSet returns a predicate accepting only the given IDs (used to apply
// metadata-index match results).
func IDSet(ids map[int64]struct{}) Predicate {
	return func(rec *models.ImageRecord) bool {
		_, ok := ids[rec.ID]
		return ok
	}
}

// Compile turns a metadata filter into a predicate. OpMatch filters cannot be
// compiled here; they are resolved against the metadata index first and arrive
// as an IDSet.
func Compile(f models.Filter) (Predicate, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	switch f.Op {
	case models.OpEq:
		want := f.Value
		return func(rec *models.ImageRecord) bool {
			return metaEqual(rec.Metadata[f.Field], want)
		}, nil
	case models.OpIn:
		vals := f.Values
		return func(rec *models.ImageRecord) bool {
			got, ok := rec.Metadata[f.Field]
			if !ok {
				return false
			}
			for _, want := range vals {
				if metaEqual(got, want) {
					return true
				}
			}
			return false
		}, nil
	case models.OpRange:
		min, max := f.Min, f.Max
		return func(rec *models.ImageRecord) bool {
			v, ok := metaNumber(rec.Metadata[f.Field])
			if !ok {
				return false
			}
			if min != nil && v < *min {
				return false
			}
			if max != nil && v > *max {
				return false
			}
			return true
		}, nil
	case models.OpMatch:
		return nil, fmt.Errorf("filter %q: match filters require the metadata index", f.Field)
	default:
		return nil, fmt.Errorf("filter %q: unknown op %q", f.Field, f.Op)
	}
}

// metaEqual compares a metadata value against a filter value, tolerating the
// numeric type wobble introduced by JSON decoding (float64) and CSV import
// (int64/float64/string).
func metaEqual(got, want interface{}) bool {
	if got == nil || want == nil {
		return got == want
	}
	if gs, ok := got.(string); ok {
		if ws, ok := want.(string); ok {
			return gs == ws
		}
	}
	gn, gok := metaNumber(got)
	wn, wok := metaNumber(want)
	if gok && wok {
		return gn == wn
	}
	return fmt.Sprintf("%v", got) == fmt.Sprintf("%v", want)
}

// metaNumber converts a metadata value to float64 when possible.
func metaNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
