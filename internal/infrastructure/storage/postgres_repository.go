package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/alekseyt9/pubcrawler/internal/domain"
	"github.com/alekseyt9/pubcrawler/internal/ports"
)

// PostgresRepository remembers delivered publications across runs so a
// recurring crawl does not re-deliver records the API already has.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.PublicationCache = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation. A nil DB disables
// the cache (every record is treated as new).
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Seen returns a map with titles that already exist in storage.
func (r *PostgresRepository) Seen(ctx context.Context, titles []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if r.db == nil || len(titles) == 0 {
		return result, nil
	}

	query, args, err := r.builder.
		Select("title").
		From("delivered_publications").
		Where(sq.Eq{"title": titles}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build seen query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query seen publications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		result[title] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// MarkDelivered upserts delivered publication snapshots.
func (r *PostgresRepository) MarkDelivered(ctx context.Context, records []domain.Publication) error {
	if r.db == nil || len(records) == 0 {
		return nil
	}

	insert := r.builder.
		Insert("delivered_publications").
		Columns("title", "year", "authors", "publication_link", "author_links", "page_number")

	for _, rec := range records {
		insert = insert.Values(rec.Title, rec.Year, rec.Authors, rec.PublicationLink, rec.AuthorLinks, rec.PageNumber)
	}

	query, args, err := insert.
		Suffix(`ON CONFLICT (title) DO UPDATE
                SET authors = EXCLUDED.authors,
                    publication_link = EXCLUDED.publication_link,
                    author_links = EXCLUDED.author_links,
                    updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert delivered publications: %w", err)
	}

	return nil
}
