package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kb_chunks (
  seq        INTEGER PRIMARY KEY AUTOINCREMENT,
  id         TEXT NOT NULL,
  collection TEXT NOT NULL,
  content    TEXT NOT NULL,
  metadata   TEXT NOT NULL,
  embedding  BLOB NOT NULL,
  UNIQUE (collection, id)
);`

// SQLite keeps the index in a single file under the persist directory.
// Queries scan the collection and rank by cosine distance in process.
type SQLite struct {
	db         *sql.DB
	path       string
	collection string
	logger     *log.Logger
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(ctx context.Context, path, collection string, logger *log.Logger) (*SQLite, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[VECTORSTORE] ", log.LstdFlags)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating persist directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{db: db, path: path, collection: collection, logger: logger}, nil
}

func (s *SQLite) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO kb_chunks (id, collection, content, metadata, embedding)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (collection, id) DO UPDATE SET
  content = excluded.content,
  metadata = excluded.metadata,
  embedding = excluded.embedding`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range records {
		if len(r.Embedding) == 0 {
			return fmt.Errorf("record %s: empty embedding", r.ID)
		}
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, s.collection, r.Content, string(meta), float32ToBytes(r.Embedding)); err != nil {
			return fmt.Errorf("upsert %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Query(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, id, content, metadata, embedding FROM kb_chunks WHERE collection = ? ORDER BY seq`, s.collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cands []candidate
	for rows.Next() {
		var (
			seq    int
			m      Match
			meta   string
			rawVec []byte
		)
		if err := rows.Scan(&seq, &m.ID, &m.Content, &meta, &rawVec); err != nil {
			return nil, err
		}
		vec := bytesToFloat32(rawVec)
		if len(vec) != len(embedding) {
			return nil, ErrDimensionMismatch
		}
		if err := json.Unmarshal([]byte(meta), &m.Metadata); err != nil {
			s.logger.Printf("chunk %s: bad metadata: %v", m.ID, err)
		}
		m.Distance = CosineDistance(embedding, vec)
		cands = append(cands, candidate{match: m, order: seq})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nearest(cands, k), nil
}

func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kb_chunks WHERE collection = ?`, s.collection).Scan(&n)
	return n, err
}

func (s *SQLite) Recreate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kb_chunks WHERE collection = ?`, s.collection)
	return err
}

func (s *SQLite) All(ctx context.Context) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, content, metadata FROM kb_chunks WHERE collection = ? ORDER BY seq`, s.collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Match
	for rows.Next() {
		var (
			m    Match
			meta string
		)
		if err := rows.Scan(&m.ID, &m.Content, &meta); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(meta), &m.Metadata)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }

func float32ToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
