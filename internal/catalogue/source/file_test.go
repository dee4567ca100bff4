package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/resilience"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFileFetchJSONArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "posts.json")
	writeFile(t, path, `[
		{"id":"a","title":"A","category":"Tools","date":"2025-08-10","tags":["Go"],"readTime":"5 min read","views":12},
		{"id":"b","title":"B","category":"Tools","date":"2025-08-11"}
	]`)

	posts, err := NewFile(path).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "a", posts[0].ID)
	assert.Equal(t, []string{"Go"}, posts[0].Tags)
	assert.Equal(t, "5 min read", posts[0].ReadTime)
	assert.Equal(t, "b", posts[1].ID)
}

func TestFileFetchGlobConcatenatesInPathOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "2025", "b.yaml"), `
- id: from-yaml
  title: YAML post
  category: Security
  date: 2025-08-14
  imageUrl: https://example.com/a.webp
  tags: [Security, API Testing]
`)
	writeFile(t, filepath.Join(dir, "2025", "a.json"), `{"posts":[{"id":"from-json","category":"Tools","date":"2025-08-12"}]}`)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	src := NewFile(filepath.Join(dir, "**", "*.{json,yaml}"))
	posts, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "from-json", posts[0].ID)
	assert.Equal(t, "from-yaml", posts[1].ID)
	assert.Equal(t, "2025-08-14", posts[1].Date)
	assert.Equal(t, []string{"Security", "API Testing"}, posts[1].Tags)
	assert.Contains(t, src.Name(), "file:")
}

func TestFileFetchYAMLEnvelope(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.yml")
	writeFile(t, path, "posts:\n  - id: x\n    category: Tools\n    date: 2025-01-02\n")

	posts, err := NewFile(path).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "x", posts[0].ID)
}

func TestFileFetchErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFile(filepath.Join(dir, "*.json")).Fetch(context.Background())
	assert.ErrorContains(t, err, "no catalogue files match")

	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, `[{"id":`)
	_, err = NewFile(bad).Fetch(context.Background())
	assert.ErrorContains(t, err, "parsing catalogue file")

	other := filepath.Join(dir, "posts.csv")
	writeFile(t, other, "id,title")
	_, err = NewFile(other).Fetch(context.Background())
	assert.ErrorContains(t, err, "unsupported catalogue file type")
}

func TestFileFetchMalformedFileIsNotRetried(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"broken.json":   `[{"id":`,
		"envelope.json": `{"posts": 3}`,
		"broken.yaml":   "- id: [unclosed\n",
		"scalar.yml":    "posts: nope\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			writeFile(t, path, content)
			src := NewFile(path)

			attempts := 0
			err := resilience.Retry(context.Background(), "fetch", resilience.RetryConfig{
				MaxAttempts:  3,
				InitialDelay: time.Millisecond,
				MaxDelay:     time.Millisecond,
			}, func() error {
				attempts++
				_, err := src.Fetch(context.Background())
				return err
			})
			require.Error(t, err)
			assert.Equal(t, 1, attempts)
			assert.ErrorIs(t, err, apperrors.ErrInvalidCatalogue)
			assert.ErrorContains(t, err, name)
		})
	}
}

func TestFileFetchHonoursCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.json")
	writeFile(t, path, `[]`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFile(path).Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
