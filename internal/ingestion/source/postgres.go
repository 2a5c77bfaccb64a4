package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/errors"
)

// Postgres reads documents from the rows of a query that yields filename
// and content columns.
type Postgres struct {
	db    *sqlx.DB
	query string
}

func NewPostgres(db *sqlx.DB, query string) *Postgres {
	return &Postgres{db: db, query: query}
}

func (p *Postgres) Name() string {
	return "postgres"
}

type documentRow struct {
	Filename string         `db:"filename"`
	Content  sql.NullString `db:"content"`
}

// item turns a scanned row into a stream item. Rows that fail to scan or
// carry no content become item errors so the run skips only them.
func (r documentRow) item(scanErr error) ingestion.Item {
	doc := ingestion.Document{Filename: r.Filename}
	switch {
	case scanErr != nil:
		return ingestion.Item{Document: doc, Err: fmt.Errorf("scanning document row: %w", scanErr)}
	case !r.Content.Valid:
		return ingestion.Item{Document: doc, Err: fmt.Errorf("%w: content is NULL", apperrors.ErrInvalidDocument)}
	}
	doc.Content = r.Content.String
	return ingestion.Item{Document: doc}
}

func (p *Postgres) Each(ctx context.Context, fn func(ingestion.Item) error) error {
	rows, err := p.db.QueryxContext(ctx, p.query)
	if err != nil {
		return fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var row documentRow
		scanErr := rows.StructScan(&row)
		if err := fn(row.item(scanErr)); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading document rows: %w", err)
	}
	return nil
}
