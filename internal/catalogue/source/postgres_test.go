package source

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/postgres"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T, table string) *postgres.Client {
	t.Helper()
	cfg := config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "content_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "content"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		Table:           table,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}
	db, err := postgres.New(cfg)
	if err != nil {
		t.Skipf("skipping postgres source test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgresFetch(t *testing.T) {
	table := fmt.Sprintf("posts_test_%d", time.Now().UnixNano())
	db := skipIfNoPostgres(t, table)
	ctx := context.Background()

	_, err := db.DB.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %s (
		position integer PRIMARY KEY, id text NOT NULL, title text, content text,
		summary text, author text, category text, image_url text,
		published_on date, tags text[], read_time text)`, table))
	require.NoError(t, err)
	t.Cleanup(func() {
		db.DB.ExecContext(context.Background(), "DROP TABLE "+table)
	})

	_, err = db.DB.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s VALUES
		(2, 'second', 'Second', 'body', NULL, 'Dev Insights', 'Tools', NULL, '2025-08-12', '{Go,Testing}', '5 min read'),
		(1, 'first', 'First', 'body', 'sum', NULL, 'Security', NULL, '2025-08-10', NULL, NULL)`, table))
	require.NoError(t, err)

	posts, err := NewPostgres(db).Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "first", posts[0].ID)
	assert.Equal(t, "2025-08-10", posts[0].Date)
	assert.Empty(t, posts[0].Tags)
	assert.Equal(t, "second", posts[1].ID)
	assert.Equal(t, []string{"Go", "Testing"}, posts[1].Tags)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
