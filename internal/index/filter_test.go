package index

import (
	"testing"

	"github.com/hyperjump/curio/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

func TestCompile(t *testing.T) {
	rembrandt := &models.ImageRecord{ID: 1, Metadata: map[string]interface{}{"artist": "rembrandt", "year": 1642.0}}
	vermeer := &models.ImageRecord{ID: 2, Metadata: map[string]interface{}{"artist": "vermeer", "year": "1665"}}
	bare := &models.ImageRecord{ID: 3}

	tests := []struct {
		name   string
		filter models.Filter
		rec    *models.ImageRecord
		want   bool
	}{
		{"eq match", models.Filter{Field: "artist", Op: models.OpEq, Value: "rembrandt"}, rembrandt, true},
		{"eq no match", models.Filter{Field: "artist", Op: models.OpEq, Value: "vermeer"}, rembrandt, false},
		{"eq missing field", models.Filter{Field: "artist", Op: models.OpEq, Value: "vermeer"}, bare, false},
		{"in match", models.Filter{Field: "artist", Op: models.OpIn, Values: []interface{}{"vermeer", "hals"}}, vermeer, true},
		{"in no match", models.Filter{Field: "artist", Op: models.OpIn, Values: []interface{}{"hals"}}, vermeer, false},
		{"range inside", models.Filter{Field: "year", Op: models.OpRange, Min: floatPtr(1600), Max: floatPtr(1650)}, rembrandt, true},
		{"range outside", models.Filter{Field: "year", Op: models.OpRange, Min: floatPtr(1700)}, rembrandt, false},
		{"range numeric string", models.Filter{Field: "year", Op: models.OpRange, Min: floatPtr(1660)}, vermeer, true},
		{"range missing field", models.Filter{Field: "year", Op: models.OpRange, Min: floatPtr(0)}, bare, false},
		{"eq numeric type wobble", models.Filter{Field: "year", Op: models.OpEq, Value: 1642}, rembrandt, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := Compile(tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if got := pred(tt.rec); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCompile_Invalid(t *testing.T) {
	invalid := []models.Filter{
		{Field: "", Op: models.OpEq, Value: "x"},
		{Field: "artist", Op: models.OpEq},
		{Field: "artist", Op: models.OpIn},
		{Field: "year", Op: models.OpRange},
		{Field: "artist", Op: "like", Value: "x"},
		{Field: "artist", Op: models.OpMatch, Value: "x"}, // needs metadata index
	}
	for _, f := range invalid {
		if _, err := Compile(f); err == nil {
			t.Errorf("Expected error for filter %+v", f)
		}
	}
}

func TestExclude(t *testing.T) {
	pred := Exclude([]int64{1, 3})
	if pred(&models.ImageRecord{ID: 1}) {
		t.Error("Expected id 1 excluded")
	}
	if !pred(&models.ImageRecord{ID: 2}) {
		t.Error("Expected id 2 included")
	}
}

func TestAnd(t *testing.T) {
	rec := &models.ImageRecord{ID: 5, Metadata: map[string]interface{}{"artist": "vermeer"}}
	eq, err := Compile(models.Filter{Field: "artist", Op: models.OpEq, Value: "vermeer"})
	if err != nil {
		t.Fatal(err)
	}
	if !And(eq, Exclude([]int64{7}))(rec) {
		t.Error("Expected record accepted by both predicates")
	}
	if And(eq, Exclude([]int64{5}))(rec) {
		t.Error("Expected record rejected by exclusion")
	}
}
