package models

import "fmt"

// DimensionError reports an embedding whose length does not match the active
// index dimension. ID is the offending image ID, or -1 when the vector did not
// come from a record (e.g. a query or feedback embedding).
type DimensionError struct {
	ID   int64
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	if e.ID >= 0 {
		return fmt.Sprintf("embedding dimension mismatch for image %d: got %d, expected %d", e.ID, e.Got, e.Want)
	}
	return fmt.Sprintf("embedding dimension mismatch: got %d, expected %d", e.Got, e.Want)
}

// NewDimensionError returns a DimensionError for the given image ID (use -1 for
// vectors not tied to a record).
func NewDimensionError(id int64, want, got int) *DimensionError {
	return &DimensionError{ID: id, Want: want, Got: got}
}
