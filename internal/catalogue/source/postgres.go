package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/postgres"
)

// Postgres reads the catalogue from a table with one row per post. Row
// order (the position column, then id) is the catalogue insertion order.
//
//	CREATE TABLE posts (
//	    position     integer PRIMARY KEY,
//	    id           text NOT NULL,
//	    title        text,
//	    content      text,
//	    summary      text,
//	    author       text,
//	    category     text,
//	    image_url    text,
//	    published_on date,
//	    tags         text[],
//	    read_time    text
//	);
type Postgres struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewPostgres creates a source over the client's configured table.
func NewPostgres(db *postgres.Client) *Postgres {
	return &Postgres{
		db:     db,
		logger: slog.Default().With("component", "postgres-source"),
	}
}

func (p *Postgres) Name() string {
	return "postgres:" + p.db.Table()
}

// Fetch selects every row. Validation is left to catalogue.Load, so NULL
// columns come back as empty strings rather than errors.
func (p *Postgres) Fetch(ctx context.Context) ([]catalogue.RawPost, error) {
	query := fmt.Sprintf(
		`SELECT id, title, content, summary, author, category, image_url, published_on, tags, read_time
		FROM %s ORDER BY position, id`,
		pq.QuoteIdentifier(p.db.Table()),
	)
	rows, err := p.db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	var posts []catalogue.RawPost
	for rows.Next() {
		var (
			id, title, content, summary, author sql.NullString
			category, imageURL, readTime        sql.NullString
			publishedOn                         sql.NullTime
			tags                                pq.StringArray
		)
		if err := rows.Scan(&id, &title, &content, &summary, &author, &category,
			&imageURL, &publishedOn, &tags, &readTime); err != nil {
			return nil, fmt.Errorf("scanning post row: %w", err)
		}
		posts = append(posts, catalogue.RawPost{
			ID:       id.String,
			Title:    title.String,
			Content:  content.String,
			Summary:  summary.String,
			Author:   author.String,
			Category: category.String,
			ImageURL: imageURL.String,
			Date:     formatDate(publishedOn),
			Tags:     []string(tags),
			ReadTime: readTime.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating post rows: %w", err)
	}
	p.logger.Info("catalogue rows read", "table", p.db.Table(), "posts", len(posts))
	return posts, nil
}

func formatDate(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.UTC().Format(time.DateOnly)
}
