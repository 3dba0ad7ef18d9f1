// Package database implements the SQLite-backed catalog.
package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"findex/internal/database/migrations"
	"findex/internal/findex"
	"findex/internal/model"
)

// SQLiteCatalog implements the Catalog interface using SQLite.
type SQLiteCatalog struct {
	db   *sql.DB
	path string
}

// NewSQLiteCatalog creates a new SQLite catalog connection.
// path can be a file path or ":memory:" for an in-memory catalog.
func NewSQLiteCatalog(path string) (*SQLiteCatalog, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteCatalog{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with the
// PRAGMAs the catalog requires. Exported for tools and tests.
//
// The PRAGMAs ride on the DSN so that every connection database/sql
// pools gets them, not just the one that happened to run an Exec.
// Foreign keys are OFF by default in SQLite; WAL and busy_timeout keep
// concurrent import workers from tripping over each other's write
// locks.
func OpenConnection(path string) (*sql.DB, error) {
	dsn := path + "?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	if path == ":memory:" {
		// Each pooled connection to :memory: would otherwise be a
		// fresh empty database. Pin the pool to a single connection.
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// Indexed file operations

func (s *SQLiteCatalog) FindByHash(hash string) (*model.IndexedFile, error) {
	row := s.db.QueryRow(`
		SELECT hash, secondary_hash, size, media_type, location, first_seen,
		       corrupt, derived_from_hash, derived_for, metadata
		FROM indexed_files WHERE hash = ?`, hash)

	f, err := scanIndexedFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding file by hash: %w", err)
	}
	return f, nil
}

func (s *SQLiteCatalog) CreateIndexedFile(f *model.IndexedFile) error {
	metadata, err := marshalMetadata(f.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO indexed_files
			(hash, secondary_hash, size, media_type, location, first_seen,
			 corrupt, derived_from_hash, derived_for, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Hash, f.SecondaryHash, f.Size, f.MediaType, f.Location, f.FirstSeen,
		f.Corrupt, f.DerivedFromHash, f.DerivedFor, metadata)
	if err != nil {
		if isConstraintViolation(err) {
			return findex.ErrHashExists
		}
		return fmt.Errorf("creating indexed file: %w", err)
	}
	return nil
}

func (s *SQLiteCatalog) AddPath(p *model.FilePath) error {
	// Re-observing a known (hash, path, host) triple is a no-op; the
	// UNIQUE constraint catches the duplicate and ON CONFLICT discards
	// it. The same path on a different host is new evidence.
	_, err := s.db.Exec(`
		INSERT INTO file_paths (id, file_hash, path, hostname, mtime, ctime, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_hash, path, hostname) DO NOTHING`,
		p.ID, p.FileHash, p.Path, p.Hostname, p.MTime, p.CTime, p.ObservedAt)
	if err != nil {
		return fmt.Errorf("adding path: %w", err)
	}
	return nil
}

func (s *SQLiteCatalog) MarkCorrupt(hash string) error {
	_, err := s.db.Exec(`UPDATE indexed_files SET corrupt = TRUE WHERE hash = ?`, hash)
	if err != nil {
		return fmt.Errorf("marking file corrupt: %w", err)
	}
	return nil
}

func (s *SQLiteCatalog) UpdateMetadata(hash string, md *model.Metadata) error {
	metadata, err := marshalMetadata(md)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`UPDATE indexed_files SET metadata = ?, corrupt = FALSE WHERE hash = ?`,
		metadata, hash)
	if err != nil {
		return fmt.Errorf("updating metadata: %w", err)
	}
	return nil
}

// Import run tracking

func (s *SQLiteCatalog) CreateImportRun(operation, parameters string) (*model.ImportRun, error) {
	startedAt := time.Now()
	res, err := s.db.Exec(`
		INSERT INTO import_runs (started_at, operation, parameters, status)
		VALUES (?, ?, ?, 'running')`,
		startedAt, operation, parameters)
	if err != nil {
		return nil, fmt.Errorf("creating import run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading import run id: %w", err)
	}

	return &model.ImportRun{
		ID:         id,
		StartedAt:  startedAt,
		Operation:  operation,
		Parameters: parameters,
		Status:     "running",
	}, nil
}

func (s *SQLiteCatalog) FinishImportRun(id int64, status string) error {
	_, err := s.db.Exec(`UPDATE import_runs SET finished_at = ?, status = ? WHERE id = ?`,
		time.Now(), status, id)
	if err != nil {
		return fmt.Errorf("finishing import run: %w", err)
	}
	return nil
}

// ListImportRuns returns the most recent import runs, newest first.
func (s *SQLiteCatalog) ListImportRuns(limit int) ([]*model.ImportRun, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, operation, parameters, status
		FROM import_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing import runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.ImportRun
	for rows.Next() {
		var run model.ImportRun
		var finishedAt sql.NullTime
		err := rows.Scan(&run.ID, &run.StartedAt, &finishedAt,
			&run.Operation, &run.Parameters, &run.Status)
		if err != nil {
			return nil, fmt.Errorf("scanning import run: %w", err)
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			run.FinishedAt = &t
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// Status reporting

func (s *SQLiteCatalog) CountFiles() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM indexed_files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting files: %w", err)
	}
	return n, nil
}

func (s *SQLiteCatalog) CountPaths() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM file_paths`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting paths: %w", err)
	}
	return n, nil
}

// Path returns the catalog file path (or ":memory:").
func (s *SQLiteCatalog) Path() string {
	return s.path
}

// CheckMigrations verifies the catalog schema is up-to-date.
func (s *SQLiteCatalog) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrateUp brings the catalog schema to the latest version.
func (s *SQLiteCatalog) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// Close closes the catalog connection.
func (s *SQLiteCatalog) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanIndexedFile(row scanner) (*model.IndexedFile, error) {
	var f model.IndexedFile
	var metadata sql.NullString
	err := row.Scan(&f.Hash, &f.SecondaryHash, &f.Size, &f.MediaType, &f.Location,
		&f.FirstSeen, &f.Corrupt, &f.DerivedFromHash, &f.DerivedFor, &metadata)
	if err != nil {
		return nil, err
	}
	if metadata.Valid && metadata.String != "" {
		var md model.Metadata
		if err := json.Unmarshal([]byte(metadata.String), &md); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
		f.Metadata = &md
	}
	return &f, nil
}

// marshalMetadata encodes metadata as JSON, or NULL when absent.
func marshalMetadata(md *model.Metadata) (any, error) {
	if md == nil {
		return nil, nil
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	return string(raw), nil
}

// isConstraintViolation reports whether err is a SQLite primary key or
// unique constraint failure.
func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// Compile-time check that SQLiteCatalog implements findex.Catalog
var _ findex.Catalog = (*SQLiteCatalog)(nil)
