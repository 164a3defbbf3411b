package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
)

// Postgres stores chunks in a pgvector table and lets the database rank them.
type Postgres struct {
	DB         *sql.DB
	collection string
	logger     *log.Logger
}

// OpenPostgres connects with dsn. The schema must already exist (see Migrate).
func OpenPostgres(ctx context.Context, dsn, collection string, logger *log.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return NewPostgres(db, collection, logger), nil
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB, collection string, logger *log.Logger) *Postgres {
	if logger == nil {
		logger = log.New(log.Writer(), "[VECTORSTORE] ", log.LstdFlags)
	}
	return &Postgres{DB: db, collection: collection, logger: logger}
}

func (p *Postgres) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO kb_chunks (id, collection, content, metadata, embedding)
VALUES ($1,$2,$3,$4,$5::vector)
ON CONFLICT (collection, id) DO UPDATE SET
  content = EXCLUDED.content,
  metadata = EXCLUDED.metadata,
  embedding = EXCLUDED.embedding;
`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range records {
		vec, err := encodeVectorLiteral(r.Embedding)
		if err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, p.collection, r.Content, meta, vec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Postgres) Query(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	vec, err := encodeVectorLiteral(embedding)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 10
	}
	rows, err := p.DB.QueryContext(ctx, `
SELECT id, content, metadata, embedding <=> $1::vector AS distance
FROM kb_chunks
WHERE collection = $2
ORDER BY embedding <=> $1::vector, seq
LIMIT $3
`, vec, p.collection, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Match
	for rows.Next() {
		var (
			m    Match
			meta []byte
		)
		if err := rows.Scan(&m.ID, &m.Content, &meta, &m.Distance); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				p.logger.Printf("chunk %s: bad metadata: %v", m.ID, err)
			}
		}
		m.Distance = clampDistance(m.Distance)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	err := p.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM kb_chunks WHERE collection = $1`, p.collection).Scan(&n)
	return n, err
}

func (p *Postgres) Recreate(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `DELETE FROM kb_chunks WHERE collection = $1`, p.collection)
	return err
}

func (p *Postgres) All(ctx context.Context) ([]Match, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT id, content, metadata FROM kb_chunks WHERE collection = $1 ORDER BY seq`, p.collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Match
	for rows.Next() {
		var (
			m    Match
			meta []byte
		)
		if err := rows.Scan(&m.ID, &m.Content, &meta); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(meta, &m.Metadata)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error { return p.DB.Close() }

func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String(), nil
}
