// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/curio/internal/models"
)

// SQLiteStorage implements Storage using SQLite. Embeddings are stored as
// little-endian float32 blobs, metadata as JSON.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY,
		path TEXT,
		embedding BLOB NOT NULL,
		metadata TEXT
	);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceDataset transactionally replaces the catalog with records.
func (s *SQLiteStorage) ReplaceDataset(ctx context.Context, records []*models.ImageRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM images"); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO images (id, path, embedding, metadata) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		metaJSON, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for id %d: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.Path, embeddingToBlob(rec.Embedding), string(metaJSON)); err != nil {
			return fmt.Errorf("failed to insert image %d: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// LoadRecords returns every record in ascending ID order.
func (s *SQLiteStorage) LoadRecords(ctx context.Context) ([]*models.ImageRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, path, embedding, metadata FROM images ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var records []*models.ImageRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetRecord returns one record by ID.
func (s *SQLiteStorage) GetRecord(ctx context.Context, id int64) (*models.ImageRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, path, embedding, metadata FROM images WHERE id = ?", id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("image not found: %d", id)
	}
	return rec, err
}

// CountImages returns the number of stored records.
func (s *SQLiteStorage) CountImages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM images").Scan(&count)
	return count, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*models.ImageRecord, error) {
	var (
		rec      models.ImageRecord
		path     sql.NullString
		blob     []byte
		metaJSON sql.NullString
	)
	if err := row.Scan(&rec.ID, &path, &blob, &metaJSON); err != nil {
		return nil, err
	}
	rec.Path = path.String
	rec.Embedding = blobToEmbedding(blob)
	if metaJSON.Valid && metaJSON.String != "" && metaJSON.String != "null" {
		if err := json.Unmarshal([]byte(metaJSON.String), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for id %d: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

func embeddingToBlob(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(f))
	}
	return out
}

func blobToEmbedding(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}
