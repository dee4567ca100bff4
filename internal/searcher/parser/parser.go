// Package parser turns a free-text query into the distinct index terms it
// matches on.
package parser

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer/tokenizer"
)

// QueryPlan is a tokenized query. Terms are distinct and in first-occurrence
// order; a plan without terms matches nothing.
type QueryPlan struct {
	Terms    []string
	RawQuery string
}

// Parse tokenizes query with the same rules used at index time. Repeated
// words count once, so "json json" scores like "json".
func Parse(query string) *QueryPlan {
	return &QueryPlan{
		Terms:    tokenizer.Unique(query),
		RawQuery: query,
	}
}

// Empty reports whether the plan has no searchable terms.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}

// Normalized is a canonical form of the plan: two queries with the same
// normalized form always produce the same results.
func (p *QueryPlan) Normalized() string {
	terms := make([]string, len(p.Terms))
	copy(terms, p.Terms)
	sort.Strings(terms)
	return strings.Join(terms, " ")
}
