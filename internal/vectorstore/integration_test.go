//go:build integration

package vectorstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPgvector(t *testing.T, ctx context.Context) (testcontainers.Container, string) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "concordance",
			"POSTGRES_PASSWORD": "concordance",
			"POSTGRES_DB":       "concordance",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(90 * time.Second),
	}
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("failed to start postgres: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432")
	if err != nil {
		_ = pg.Terminate(ctx)
		t.Fatalf("failed to get mapped port: %v", err)
	}
	host, err := pg.Host(ctx)
	if err != nil {
		_ = pg.Terminate(ctx)
		t.Fatalf("failed to get host: %v", err)
	}
	return pg, fmt.Sprintf("postgres://concordance:concordance@%s:%s/concordance?sslmode=disable", host, port.Port())
}

func TestPostgresAgainstPgvector(t *testing.T) {
	ctx := context.Background()
	pg, dsn := startPgvector(t, ctx)
	defer pg.Terminate(ctx)

	var migErr error
	for i := 0; i < 6; i++ {
		if migErr = Migrate("", dsn, "up", 0); migErr == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if migErr != nil {
		t.Fatalf("Migrate: %v", migErr)
	}

	st, err := OpenPostgres(ctx, dsn, "knowledge_base", nil)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer st.Close()

	if err := st.Upsert(ctx, sampleRecords()); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := st.Upsert(ctx, sampleRecords()); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if n, _ := st.Count(ctx); n != 3 {
		t.Fatalf("expected 3 rows, got %d", n)
	}
	got, err := st.Query(ctx, []float32{0, 1, 0}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || got[0].ID != "guide_1" {
		t.Fatalf("unexpected matches: %+v", got)
	}
	if err := st.Recreate(ctx); err != nil {
		t.Fatalf("Recreate: %v", err)
	}
	if n, _ := st.Count(ctx); n != 0 {
		t.Fatalf("expected empty collection, got %d", n)
	}
}
