package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/hyperjump/curio/internal/models"
)

func TestWriteSearchResults_JSON(t *testing.T) {
	response := &models.SearchResponse{
		Query:     "test query",
		QueryTime: 42,
		Total:     1,
		Kind:      models.QueryText,
		Results: []*models.ScoredResult{
			{
				Rank:              1,
				ImageID:           7,
				BaseSimilarity:    0.8,
				AdaptedSimilarity: 0.9,
				Image: &models.ImageRecord{
					ID:       7,
					Path:     "images/7.jpg",
					Metadata: map[string]interface{}{"title": "The Night Watch"},
				},
			},
		},
	}
	var buf bytes.Buffer
	err := WriteSearchResults(&buf, response, OutputJSON)
	if err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(strings.NewReader(buf.String())).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Query != response.Query || decoded.QueryTime != response.QueryTime {
		t.Errorf("decoded query=%q query_time=%d, want query=%q query_time=%d",
			decoded.Query, decoded.QueryTime, response.Query, response.QueryTime)
	}
	if len(decoded.Results) != 1 || decoded.Results[0].ImageID != 7 {
		t.Errorf("decoded results: want one result with id 7, got %+v", decoded.Results)
	}
}

func TestWriteSearchResults_JSON_empty(t *testing.T) {
	response := &models.SearchResponse{Query: "q"}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("empty response JSON decode: %v", err)
	}
	if decoded.Total != 0 || len(decoded.Results) != 0 {
		t.Errorf("expected empty response, got total=%d results=%d", decoded.Total, len(decoded.Results))
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	response := &models.SearchResponse{
		Query:         "foo",
		QueryTime:     10,
		Total:         1,
		FeedbackCount: 2,
		Results: []*models.ScoredResult{
			{
				Rank:              1,
				ImageID:           3,
				BaseSimilarity:    0.51,
				AdaptedSimilarity: 0.62,
				Image: &models.ImageRecord{
					ID:   3,
					Path: "images/3.jpg",
					Metadata: map[string]interface{}{
						"title":  "View of Delft",
						"artist": "vermeer",
					},
				},
			},
		},
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 1 matching images", "10ms", "2 feedback events", "Rank: 1", "ID: 3", "images/3.jpg", "View of Delft", "vermeer"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteSearchResults_text_noMetadata(t *testing.T) {
	response := &models.SearchResponse{
		Query:     "bar",
		QueryTime: 5,
		Total:     1,
		Results: []*models.ScoredResult{
			{Rank: 1, ImageID: 12, BaseSimilarity: 0.4, AdaptedSimilarity: 0.4},
		},
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	if !strings.Contains(buf.String(), "ID: 12") {
		t.Errorf("expected bare id in output:\n%s", buf.String())
	}
}

func TestWriteSearchResults_unknownFormatTreatedAsText(t *testing.T) {
	response := &models.SearchResponse{Query: "x"}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, SearchOutputFormat("unknown")); err != nil {
		t.Fatalf("WriteSearchResults(unknown): %v", err)
	}
	if !strings.Contains(buf.String(), "Found") {
		t.Errorf("unknown format should fall back to text; got %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"empty", "", 5, ""},
		{"short", "hi", 5, "hi"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 5, "hello..."},
		{"maxLen zero", "ab", 0, "ab"},
		{"maxLen negative", "ab", -1, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.s, tt.maxLen)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxWords int
		want     string
	}{
		{"empty", "", 3, ""},
		{"few words", "one two", 3, "one two"},
		{"exact", "one two three", 3, "one two three"},
		{"more", "one two three four", 3, "one two three..."},
		{"single long", "word", 1, "word"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateWords(tt.s, tt.maxWords)
			if got != tt.want {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
			}
		})
	}
}

func TestPrintSearchResults(t *testing.T) {
	response := &models.SearchResponse{Query: "print test", QueryTime: 1}
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() {
		os.Stdout = oldStdout
		_ = w.Close()
	}()
	PrintSearchResults(response)
	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	if !strings.Contains(buf.String(), "Found 0 matching images") {
		t.Errorf("PrintSearchResults should write to stdout; got %q", buf.String())
	}
}
