package vectorstore

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgres(db, "knowledge_base", nil)
	rec := Record{
		ID:        "guide_0",
		Content:   "aura",
		Embedding: []float32{0.1, 0.2},
		Metadata:  Metadata{Source: "guide.pdf", PageNumber: 1},
	}

	mock.ExpectBegin()
	query := regexp.QuoteMeta(`
INSERT INTO kb_chunks (id, collection, content, metadata, embedding)
VALUES ($1,$2,$3,$4,$5::vector)
ON CONFLICT (collection, id) DO UPDATE SET
  content = EXCLUDED.content,
  metadata = EXCLUDED.metadata,
  embedding = EXCLUDED.embedding;
`)
	prep := mock.ExpectPrepare(query)
	prep.ExpectExec().
		WithArgs("guide_0", "knowledge_base", "aura", sqlmock.AnyArg(), "[0.1,0.2]").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := st.Upsert(context.Background(), []Record{rec}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresQueryClampsDistance(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgres(db, "knowledge_base", nil)
	query := regexp.QuoteMeta(`
SELECT id, content, metadata, embedding <=> $1::vector AS distance
FROM kb_chunks
WHERE collection = $2
ORDER BY embedding <=> $1::vector, seq
LIMIT $3
`)
	rows := sqlmock.NewRows([]string{"id", "content", "metadata", "distance"}).
		AddRow("guide_0", "aura", []byte(`{"source":"guide.pdf","document_title":"guide","page_number":4}`), 0.15).
		AddRow("guide_9", "hors sujet", []byte(`{"source":"other.pdf"}`), 1.6)
	mock.ExpectQuery(query).
		WithArgs("[0.1,0.2]", "knowledge_base", 10).
		WillReturnRows(rows)

	got, err := st.Query(context.Background(), []float32{0.1, 0.2}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || got[0].Metadata.PageNumber != 4 || got[0].Distance != 0.15 {
		t.Fatalf("unexpected first match: %+v", got)
	}
	if got[1].Distance != 1 {
		t.Fatalf("expected distance clamped to 1, got %v", got[1].Distance)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresCountAndRecreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgres(db, "knowledge_base", nil)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM kb_chunks WHERE collection = $1`)).
		WithArgs("knowledge_base").
		WillReturnResult(sqlmock.NewResult(0, 12))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM kb_chunks WHERE collection = $1`)).
		WithArgs("knowledge_base").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	if err := st.Recreate(context.Background()); err != nil {
		t.Fatalf("Recreate: %v", err)
	}
	n, err := st.Count(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("Count: %d %v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEncodeVectorLiteralRejectsEmpty(t *testing.T) {
	if _, err := encodeVectorLiteral(nil); err == nil {
		t.Fatalf("expected error for empty vector")
	}
}
