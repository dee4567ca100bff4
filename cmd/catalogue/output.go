package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/pagination"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/searcher/engine"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writePosts(out io.Writer, p pagination.Page[*catalogue.Post]) error {
	w := newTable(out)
	fmt.Fprintln(w, "ID\tDATE\tCATEGORY\tTITLE")
	for _, post := range p.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", post.ID, post.Date, post.Category, post.Title)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return writeFooter(out, p.Page, p.PageSize, p.TotalCount, p.HasNext)
}

// writeScored prints ranked posts; a zero page means the list is not paged.
func writeScored(out io.Writer, items []engine.ScoredPost, page pagination.Page[engine.ScoredPost]) error {
	w := newTable(out)
	fmt.Fprintln(w, "SCORE\tID\tDATE\tTITLE")
	for _, item := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", item.Score, item.ID, item.Date, item.Title)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if page.Page == 0 {
		return nil
	}
	return writeFooter(out, page.Page, page.PageSize, page.TotalCount, page.HasNext)
}

func writeFooter(out io.Writer, page, pageSize, total int, hasNext bool) error {
	more := ""
	if hasNext {
		more = fmt.Sprintf(", more with --page %d", page+1)
	}
	_, err := fmt.Fprintf(out, "\npage %d (size %d) of %d posts%s\n", page, pageSize, total, more)
	return err
}
