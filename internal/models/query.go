package models

import "fmt"

// QueryKind distinguishes text from image queries.
type QueryKind string

const (
	// QueryText is a free-text query encoded by the text tower.
	QueryText QueryKind = "text"
	// QueryImage is a reference-image query encoded by the image tower.
	QueryImage QueryKind = "image"
)

// FilterOp is a metadata filter operator.
type FilterOp string

const (
	// OpEq matches records whose field equals Value.
	OpEq FilterOp = "eq"
	// OpIn matches records whose field is one of Values.
	OpIn FilterOp = "in"
	// OpRange matches records whose numeric field lies in [Min, Max] (either bound may be nil).
	OpRange FilterOp = "range"
	// OpMatch matches records via free-text metadata search (resolved by the metadata index).
	OpMatch FilterOp = "match"
)

// Filter is one metadata predicate. All filters in a request must hold for a
// record to be a search candidate.
type Filter struct {
	Field  string        `json:"field"`
	Op     FilterOp      `json:"op"`
	Value  interface{}   `json:"value,omitempty"`
	Values []interface{} `json:"values,omitempty"`
	Min    *float64      `json:"min,omitempty"`
	Max    *float64      `json:"max,omitempty"`
}

// Validate checks the filter for structural problems.
func (f *Filter) Validate() error {
	if f.Field == "" {
		return fmt.Errorf("filter field cannot be empty")
	}
	switch f.Op {
	case OpEq, OpMatch:
		if f.Value == nil {
			return fmt.Errorf("filter %q: op %q requires a value", f.Field, f.Op)
		}
	case OpIn:
		if len(f.Values) == 0 {
			return fmt.Errorf("filter %q: op %q requires values", f.Field, f.Op)
		}
	case OpRange:
		if f.Min == nil && f.Max == nil {
			return fmt.Errorf("filter %q: op %q requires min or max", f.Field, f.Op)
		}
	default:
		return fmt.Errorf("filter %q: unknown op %q", f.Field, f.Op)
	}
	return nil
}

// SearchRequest is a search over the active dataset: a text query or raw image
// bytes, optional metadata filters, IDs to exclude (images already placed on
// the canvas), and a result limit.
type SearchRequest struct {
	Query      string   `json:"query,omitempty"`
	ImageData  []byte   `json:"image_data,omitempty"`
	Filters    []Filter `json:"filters,omitempty"`
	ExcludeIDs []int64  `json:"exclude_ids,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}

// Kind returns the query kind: image when ImageData is set, text otherwise.
func (q *SearchRequest) Kind() QueryKind {
	if len(q.ImageData) > 0 {
		return QueryImage
	}
	return QueryText
}

// Validate ensures the request has a query and normalizes the limit.
// Returns an error when both text and image payloads are empty or a filter is malformed.
func (q *SearchRequest) Validate() error {
	if q.Query == "" && len(q.ImageData) == 0 {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 1000 {
		q.Limit = 1000
	}
	for i := range q.Filters {
		if err := q.Filters[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
