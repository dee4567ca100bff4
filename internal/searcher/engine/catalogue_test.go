package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue/source"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer"
)

const shippedCatalogue = "../../../data/posts.json"

func shippedEngine(t *testing.T) *Engine {
	t.Helper()
	raw, err := source.NewFile(shippedCatalogue).Fetch(context.Background())
	require.NoError(t, err)
	cat, err := catalogue.Load(raw)
	require.NoError(t, err)
	snap, err := indexer.Build(cat, time.Now())
	require.NoError(t, err)
	return NewWithSnapshot(snap)
}

func TestShippedCatalogueNewestFirst(t *testing.T) {
	eng := shippedEngine(t)

	page, err := eng.ListAll(1, 50, OrderNewest)
	require.NoError(t, err)
	require.Equal(t, 22, page.TotalCount)
	assert.Equal(t, []string{
		"securing-front-end-code",
		"debugging-web-apps",
		"json-best-practices",
		"top-developer-tools-2025",
		"responsive-design-checklist",
		// four posts dated 2025-08-17 keep catalogue order
		"responsive-design-strategies",
		"essential-developer-tools",
		"optimizing-javascript-performance",
		"javascript-debugging-strategies",
		"responsive-design-principles",
		"secure-api-design",
		"debugging-javascript-like-a-pro",
		"secure-web-development",
		"building-secure-apis",
		"secure-api-development",
		"javascript-performance-optimization",
		"api-testing-strategies",
		"optimizing-json-performance",
		"json-parsing-best-practices",
		"mastering-code-comparison",
		"json-validation-formatting-guide",
		"responsive-web-apps-online-compilers",
	}, postIDs(page.Items))
	for _, p := range page.Items[5:9] {
		assert.Equal(t, "2025-08-17", p.Date.String())
	}

	oldest, err := eng.ListAll(1, 50, OrderOldest)
	require.NoError(t, err)
	assert.Equal(t, "responsive-web-apps-online-compilers", oldest.Items[0].ID)
	assert.Equal(t, "securing-front-end-code", oldest.Items[21].ID)
}

func TestShippedCatalogueFacets(t *testing.T) {
	eng := shippedEngine(t)

	categories, err := eng.Categories()
	require.NoError(t, err)
	assert.Len(t, categories, 7)

	page, err := eng.ListByCategory("Tools", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"top-developer-tools-2025", "essential-developer-tools"}, postIDs(page.Items))

	page, err = eng.ListByTag("HTML/CSS", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"responsive-design-checklist",
		"responsive-design-strategies",
		"responsive-design-principles",
	}, postIDs(page.Items))
}
