package source

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/errors"
)

// TestPostgres runs against a live server named by FTS_TEST_POSTGRES_DSN.
func TestPostgres(t *testing.T) {
	dsn := os.Getenv("FTS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FTS_TEST_POSTGRES_DSN not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	db.MustExecContext(ctx, `CREATE TEMP TABLE documents (filename TEXT PRIMARY KEY, content TEXT)`)
	db.MustExecContext(ctx, `INSERT INTO documents VALUES ('b.txt', 'secondo'), ('a.txt', 'primo'), ('c.txt', NULL)`)

	src := NewPostgres(db, "SELECT filename, content FROM documents ORDER BY filename")
	items := collect(t, src)
	require.Len(t, items, 3)
	assert.Equal(t, "a.txt", items[0].Filename)
	assert.Equal(t, "primo", items[0].Content)
	assert.Equal(t, "b.txt", items[1].Filename)
	assert.Equal(t, "c.txt", items[2].Filename)
	assert.ErrorIs(t, items[2].Err, apperrors.ErrInvalidDocument)
}

func TestDocumentRowItem(t *testing.T) {
	item := documentRow{Filename: "a.txt", Content: sql.NullString{String: "primo", Valid: true}}.item(nil)
	require.NoError(t, item.Err)
	assert.Equal(t, ingestion.Document{Filename: "a.txt", Content: "primo"}, item.Document)

	item = documentRow{Filename: "b.txt"}.item(nil)
	assert.ErrorIs(t, item.Err, apperrors.ErrInvalidDocument)
	assert.Equal(t, "b.txt", item.Filename)

	item = documentRow{Filename: "c.txt"}.item(errors.New("converting column"))
	assert.Error(t, item.Err)
	assert.Equal(t, "c.txt", item.Filename)
}
