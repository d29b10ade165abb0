package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	apperrors "github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/postgres"
)

// Postgres reads documents from a table with columns (id, name, body),
// ordered by id, inside one read-only snapshot. A row with a NULL body is
// delivered as unreadable.
type Postgres struct {
	client *postgres.Client
	table  string
	logger *slog.Logger
}

func NewPostgres(client *postgres.Client, table string) *Postgres {
	return &Postgres{
		client: client,
		table:  table,
		logger: slog.Default().With("component", "postgres-source", "table", table),
	}
}

func (p *Postgres) Kind() string { return "postgres" }

func (p *Postgres) Walk(ctx context.Context, fn VisitFunc) error {
	err := p.client.InReadOnlyTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, selectDocumentsQuery(p.table))
		if err != nil {
			return fmt.Errorf("%w: querying %s: %v", apperrors.ErrSourceUnavailable, p.table, err)
		}
		defer rows.Close()
		row := 0
		for rows.Next() {
			var (
				id   int64
				name sql.NullString
				body sql.NullString
			)
			doc := Document{}
			if err := rows.Scan(&id, &name, &body); err != nil {
				doc.Name = fmt.Sprintf("row-%d", row)
				doc.Err = apperrors.Unreadable(doc.Name, err)
			} else {
				doc.Name = name.String
				if !name.Valid || name.String == "" {
					doc.Name = fmt.Sprintf("%s-%d", p.table, id)
				}
				if body.Valid {
					doc.Text = body.String
				} else {
					doc.Err = apperrors.Unreadable(doc.Name, errors.New("body is NULL"))
				}
			}
			if doc.Err != nil {
				p.logger.Warn("document unreadable, skipping", "name", doc.Name, "error", doc.Err)
			}
			if err := fn(doc); err != nil {
				return err
			}
			row++
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating %s: %w", p.table, err)
		}
		return nil
	})
	return err
}

func selectDocumentsQuery(table string) string {
	return fmt.Sprintf("SELECT id, name, body FROM %s ORDER BY id", pq.QuoteIdentifier(table))
}
