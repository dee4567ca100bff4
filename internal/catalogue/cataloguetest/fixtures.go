// Package cataloguetest provides catalogue fixtures for tests and
// benchmarks.
package cataloguetest

import (
	"fmt"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue"
)

// Trio returns three posts, newest first by date but not in load order:
//
//	post1 2025-08-20 "Data Processing" [JSON]
//	post2 2025-08-15 "API Development" [JSON Security]
//	post3 2025-08-10 "Security"        [Security]
func Trio() []catalogue.RawPost {
	return []catalogue.RawPost{
		{
			ID:       "post3",
			Title:    "Security Audits for Web Apps",
			Summary:  "A practical audit workflow.",
			Content:  "Schedule audits every quarter.",
			Author:   "Dana",
			Category: "Security",
			Date:     "2025-08-10",
			Tags:     []string{"Security"},
			ReadTime: "6 min read",
		},
		{
			ID:       "post1",
			Title:    "Working with JSON Streams",
			Summary:  "Parsing large payloads incrementally.",
			Content:  "Streaming parsers keep memory flat.",
			Author:   "Alex",
			Category: "Data Processing",
			Date:     "2025-08-20",
			Tags:     []string{"JSON"},
			ReadTime: "4 min read",
		},
		{
			ID:       "post2",
			Title:    "JSON Security Checklist",
			Summary:  "Harden your API payloads.",
			Content:  "Validate JSON schemas before trusting input.",
			Author:   "Sam",
			Category: "API Development",
			Date:     "2025-08-15",
			Tags:     []string{"JSON", "Security"},
			ReadTime: "5 min read",
		},
	}
}

var (
	topics     = []string{"json", "security", "testing", "diff", "performance", "api", "design", "tooling"}
	categories = []string{"Data Processing", "API Development", "Security", "Developer Tools"}
)

// Generate returns n valid posts with ids post-0000.. and dates spread one
// day apart going back from 2025-12-31.
func Generate(n int) []catalogue.RawPost {
	start := time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)
	out := make([]catalogue.RawPost, n)
	for i := range out {
		a, b, c := topics[i%len(topics)], topics[(i+3)%len(topics)], topics[(i+5)%len(topics)]
		out[i] = catalogue.RawPost{
			ID:       fmt.Sprintf("post-%04d", i),
			Title:    fmt.Sprintf("Notes on %s and %s", a, b),
			Summary:  fmt.Sprintf("How %s shapes %s work.", a, c),
			Content:  fmt.Sprintf("This post covers %s %s %s in production systems, with examples.", a, b, c),
			Author:   "Bench",
			Category: categories[i%len(categories)],
			Date:     start.AddDate(0, 0, -i).Format(catalogue.DateLayout),
			Tags:     []string{a, b},
			ReadTime: "3 min read",
		}
	}
	return out
}

// MustLoad validates raw and fails the test on error.
func MustLoad(tb testing.TB, raw []catalogue.RawPost) *catalogue.Catalogue {
	tb.Helper()
	cat, err := catalogue.Load(raw)
	if err != nil {
		tb.Fatalf("loading fixture catalogue: %v", err)
	}
	return cat
}
