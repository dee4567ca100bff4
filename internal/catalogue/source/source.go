// Package source fetches raw post records from the places the content
// pipeline publishes them: JSON/YAML files on disk or a PostgreSQL table.
package source

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue"
)

// Source supplies one full catalogue snapshot per Fetch.
type Source interface {
	Fetch(ctx context.Context) ([]catalogue.RawPost, error)
	Name() string
}
