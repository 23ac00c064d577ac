// Package store keeps named images in a SQLite database.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/psilLang/wordvm/pkg/imagefile"
	"github.com/tliron/commonlog"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates the requested image doesn't exist
var ErrNotFound = errors.New("store: image not found")

// Entry describes a stored image without loading it.
type Entry struct {
	Name      string
	Hash      string // hex SHA-256 of the encoded image file
	Size      int    // code size in bytes
	CreatedAt time.Time
}

// Store is a SQLite-backed image catalog. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	log  commonlog.Logger
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: creating %s: %w", dir, err)
		}
	}

	// busy_timeout goes in the DSN so every pooled connection gets it
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS images (
		name       TEXT PRIMARY KEY,
		hash       TEXT NOT NULL,
		size       INTEGER NOT NULL,
		data       BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating table: %w", err)
	}

	return &Store{db: db, path: path, log: commonlog.GetLogger("wordvm.store")}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores b under b.Name, replacing any image with the same name.
func (s *Store) Put(ctx context.Context, b *imagefile.Bundle) (Entry, error) {
	if b.Name == "" {
		return Entry{}, errors.New("store: image has no name")
	}
	data, err := imagefile.Marshal(b)
	if err != nil {
		return Entry{}, err
	}
	sum := sha256.Sum256(data)
	e := Entry{
		Name:      b.Name,
		Hash:      hex.EncodeToString(sum[:]),
		Size:      b.Image.Len(),
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO images (name, hash, size, data, created_at) VALUES (?, ?, ?, ?, ?)",
		e.Name, e.Hash, e.Size, data, e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("store: saving %s: %w", b.Name, err)
	}
	s.log.Info("stored image", "name", e.Name, "size", e.Size, "hash", e.Hash[:12])
	return e, nil
}

// Get loads the image stored under name.
func (s *Store) Get(ctx context.Context, name string) (*imagefile.Bundle, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM images WHERE name = ?", name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("store: querying %s: %w", name, err)
	}
	return imagefile.Unmarshal(data)
}

// List returns all entries ordered by name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, hash, size, created_at FROM images ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("store: listing: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			ts int64
		)
		if err := rows.Scan(&e.Name, &e.Hash, &e.Size, &ts); err != nil {
			return nil, fmt.Errorf("store: scanning: %w", err)
		}
		e.CreatedAt = time.Unix(0, ts).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the image stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM images WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("store: deleting %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s.log.Info("deleted image", "name", name)
	return nil
}
