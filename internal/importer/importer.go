// Package importer builds ImageRecords from dataset files: an embeddings file
// plus a CSV or XLSX metadata table keyed by encoding_id.
package importer

import (
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/curio/internal/models"
	"github.com/hyperjump/curio/pkg/utils"
)

// Embeddings file layout: dimensions (uint32 LE), count (uint32 LE), then
// count*dimensions float32 LE values. Row position is the record ID, matching
// the metadata table's encoding_id column.

// LoadEmbeddings reads an embeddings file and L2-normalizes every vector.
func LoadEmbeddings(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open embeddings file: %w", err)
	}
	defer f.Close()

	var dims, count uint32
	if err := binary.Read(f, binary.LittleEndian, &dims); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	if dims == 0 {
		return nil, fmt.Errorf("embeddings file declares zero dimensions")
	}

	vectors := make([][]float32, 0, count)
	buf := make([]byte, dims*4)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		vec := make([]float32, dims)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4 : (j+1)*4]))
		}
		utils.NormalizeL2(vec)
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

// SaveEmbeddings writes vectors in the embeddings file layout. Used by tests
// and by export tooling.
func SaveEmbeddings(path string, vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("cannot save empty embeddings")
	}
	dims := len(vectors[0])
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create embeddings dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create embeddings file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(dims)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	buf := make([]byte, dims*4)
	for i, vec := range vectors {
		if len(vec) != dims {
			return models.NewDimensionError(int64(i), dims, len(vec))
		}
		for j, v := range vec {
			binary.LittleEndian.PutUint32(buf[j*4:(j+1)*4], math.Float32bits(v))
		}
		if _, err := f.Write(buf); err != nil {
			return fmt.Errorf("write vector %d: %w", i, err)
		}
	}
	return nil
}

// LoadMetadata reads a metadata table from a .csv or .xlsx file. The table
// must carry an encoding_id column mapping each row to its embedding position;
// a "path" column becomes the record path; every other column becomes a
// metadata field. Rows with encoding_id -1 are skipped (images without an
// embedding).
func LoadMetadata(path string) (map[int64]map[string]interface{}, map[int64]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadMetadataCSV(path)
	case ".xlsx":
		return loadMetadataXLSX(path)
	default:
		return nil, nil, fmt.Errorf("unsupported metadata format: %s (supported: .csv, .xlsx)", filepath.Ext(path))
	}
}

func loadMetadataCSV(path string) (map[int64]map[string]interface{}, map[int64]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open metadata file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read metadata header: %w", err)
	}
	rows := [][]string{}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read metadata row: %w", err)
		}
		rows = append(rows, row)
	}
	return tableToMetadata(header, rows)
}

func loadMetadataXLSX(path string) (map[int64]map[string]interface{}, map[int64]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open metadata workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("metadata workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read metadata sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("metadata sheet is empty")
	}
	return tableToMetadata(rows[0], rows[1:])
}

func tableToMetadata(header []string, rows [][]string) (map[int64]map[string]interface{}, map[int64]string, error) {
	idCol := -1
	pathCol := -1
	for i, name := range header {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "encoding_id":
			idCol = i
		case "path":
			pathCol = i
		}
	}
	if idCol < 0 {
		return nil, nil, fmt.Errorf("metadata table has no encoding_id column")
	}

	meta := make(map[int64]map[string]interface{}, len(rows))
	paths := make(map[int64]string)
	for rowNum, row := range rows {
		if idCol >= len(row) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(row[idCol]), 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: bad encoding_id %q: %w", rowNum+2, row[idCol], err)
		}
		if id < 0 {
			continue
		}
		fields := make(map[string]interface{})
		for col, name := range header {
			if col == idCol || col == pathCol || col >= len(row) {
				continue
			}
			val := strings.TrimSpace(row[col])
			if val == "" {
				continue
			}
			fields[name] = parseValue(val)
		}
		if len(fields) > 0 {
			meta[id] = fields
		}
		if pathCol >= 0 && pathCol < len(row) {
			paths[id] = strings.TrimSpace(row[pathCol])
		}
	}
	return meta, paths, nil
}

// parseValue stores numeric-looking values as float64 so range filters work;
// everything else stays a string.
func parseValue(s string) interface{} {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// BuildRecords joins embeddings and metadata into ImageRecords. The record ID
// is the embedding row position. Embeddings without a metadata row are kept
// with empty metadata; metadata rows pointing past the embeddings fail with a
// DimensionError-style report of the offending id.
func BuildRecords(vectors [][]float32, meta map[int64]map[string]interface{}, paths map[int64]string) ([]*models.ImageRecord, error) {
	n := int64(len(vectors))
	for id := range meta {
		if id >= n {
			return nil, fmt.Errorf("metadata row encoding_id %d exceeds embedding count %d", id, n)
		}
	}
	records := make([]*models.ImageRecord, 0, n)
	for i := int64(0); i < n; i++ {
		records = append(records, &models.ImageRecord{
			ID:        i,
			Path:      paths[i],
			Embedding: vectors[i],
			Metadata:  meta[i],
		})
	}
	return records, nil
}

// Import loads a full dataset from an embeddings file and an optional metadata
// table.
func Import(embeddingsPath, metadataPath string) ([]*models.ImageRecord, error) {
	vectors, err := LoadEmbeddings(embeddingsPath)
	if err != nil {
		return nil, err
	}
	var (
		meta  map[int64]map[string]interface{}
		paths map[int64]string
	)
	if metadataPath != "" {
		meta, paths, err = LoadMetadata(metadataPath)
		if err != nil {
			return nil, err
		}
	}
	return BuildRecords(vectors, meta, paths)
}
