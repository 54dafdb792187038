package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ArtifactRecord is one manifest row
type ArtifactRecord struct {
	Filename       string    `json:"filename"`
	Kind           string    `json:"kind"`
	BaseName       string    `json:"base_name"`
	SourceFilename string    `json:"source_filename"`
	SourceHash     string    `json:"source_hash"`
	Language       string    `json:"language"`
	SegmentCount   int       `json:"segment_count"`
	Duration       float64   `json:"duration"`
	CreatedAt      time.Time `json:"created_at"`
}

// MetadataDB is the SQLite manifest of artifacts produced by the writer
type MetadataDB struct {
	db *sql.DB
}

// NewMetadataDB opens (and if needed creates) the manifest database
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	createTableSQL := `
	PRAGMA busy_timeout = 10000;
	PRAGMA journal_mode = WAL;

	CREATE TABLE IF NOT EXISTS artifacts (
		filename TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		base_name TEXT NOT NULL,
		source_filename TEXT NOT NULL,
		source_hash TEXT,
		language TEXT,
		segment_count INTEGER,
		duration REAL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_artifacts_created_at ON artifacts(created_at);
	CREATE INDEX IF NOT EXISTS idx_artifacts_base_name ON artifacts(base_name);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

// RecordArtifacts upserts one row per artifact filename. Rewriting an
// artifact refreshes its row.
func (mdb *MetadataDB) RecordArtifacts(artifacts Artifacts, sourceFilename, sourceHash, language string, segmentCount int, duration float64) error {
	query := `
	INSERT INTO artifacts (filename, kind, base_name, source_filename, source_hash, language, segment_count, duration, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(filename) DO UPDATE SET
		kind = excluded.kind,
		base_name = excluded.base_name,
		source_filename = excluded.source_filename,
		source_hash = excluded.source_hash,
		language = excluded.language,
		segment_count = excluded.segment_count,
		duration = excluded.duration,
		created_at = excluded.created_at
	`

	tx, err := mdb.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin manifest transaction: %w", err)
	}
	defer tx.Rollback()

	baseName := BaseName(sourceFilename)
	now := time.Now().UnixMilli()
	for filename, kind := range artifacts.Kinds() {
		if _, err := tx.Exec(query, filename, kind, baseName, sourceFilename, sourceHash,
			language, segmentCount, duration, now); err != nil {
			return fmt.Errorf("failed to record artifact %s: %w", filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit manifest: %w", err)
	}
	return nil
}

// HasArtifact reports whether filename was produced by the writer
func (mdb *MetadataDB) HasArtifact(filename string) (bool, error) {
	var n int
	err := mdb.db.QueryRow(`SELECT COUNT(1) FROM artifacts WHERE filename = ?`, filename).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up artifact: %w", err)
	}
	return n > 0, nil
}

// ListArtifacts returns the most recently written artifacts
func (mdb *MetadataDB) ListArtifacts(limit int) ([]ArtifactRecord, error) {
	query := `
	SELECT filename, kind, base_name, source_filename, COALESCE(source_hash, ''), COALESCE(language, ''),
		COALESCE(segment_count, 0), COALESCE(duration, 0), created_at
	FROM artifacts ORDER BY created_at DESC, filename ASC LIMIT ?
	`

	rows, err := mdb.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	records := []ArtifactRecord{}
	for rows.Next() {
		var (
			rec       ArtifactRecord
			createdAt int64
		)
		if err := rows.Scan(&rec.Filename, &rec.Kind, &rec.BaseName, &rec.SourceFilename, &rec.SourceHash,
			&rec.Language, &rec.SegmentCount, &rec.Duration, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}
