package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/pagination"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/searcher/engine"
	apperrors "github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/errors"
)

func newValidateCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the catalogue and report its snapshot",
		Long: heredoc.Doc(`
			Fetches and validates every record, builds the index and prints
			the snapshot version and counts. A record that fails validation
			is reported with its position and id, and the command exits 1.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := o.snapshot(cmd.Context())
			if err != nil {
				if errors.Is(err, apperrors.ErrInvalidCatalogue) {
					return fmt.Errorf("invalid catalogue: %w", err)
				}
				return err
			}
			stats := snap.Stats()
			if o.json {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintf(w, "version\t%s\n", stats.Version)
			fmt.Fprintf(w, "posts\t%d\n", stats.Posts)
			fmt.Fprintf(w, "categories\t%d\n", stats.Categories)
			fmt.Fprintf(w, "tags\t%d\n", stats.Tags)
			fmt.Fprintf(w, "terms\t%d\n", stats.Terms)
			return w.Flush()
		},
	}
}

func newGetCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := o.engine(cmd.Context())
			if err != nil {
				return err
			}
			post, err := eng.GetByID(args[0])
			if err != nil {
				return err
			}
			if o.json {
				return writeJSON(cmd.OutOrStdout(), post)
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintf(w, "id\t%s\n", post.ID)
			fmt.Fprintf(w, "title\t%s\n", post.Title)
			fmt.Fprintf(w, "date\t%s\n", post.Date)
			fmt.Fprintf(w, "author\t%s\n", post.Author)
			fmt.Fprintf(w, "category\t%s\n", post.Category)
			fmt.Fprintf(w, "tags\t%s\n", strings.Join(post.Tags, ", "))
			fmt.Fprintf(w, "readTime\t%s\n", post.ReadTime)
			fmt.Fprintf(w, "summary\t%s\n", post.Summary)
			return w.Flush()
		},
	}
}

func newListCmd(o *options) *cobra.Command {
	var (
		category string
		tag      string
		order    string
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts newest first, optionally by category or tag",
		Example: heredoc.Doc(`
			catalogue list --page-size 5
			catalogue list --order oldest
			catalogue list --category Development
			catalogue list --tag JSON --json
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if category != "" && tag != "" {
				return fmt.Errorf("--category and --tag are mutually exclusive")
			}
			eng, err := o.engine(cmd.Context())
			if err != nil {
				return err
			}
			var result pagination.Page[*catalogue.Post]
			switch {
			case category != "":
				result, err = eng.ListByCategory(category, page, pageSize)
			case tag != "":
				result, err = eng.ListByTag(tag, page, pageSize)
			default:
				ord, perr := engine.ParseOrder(order)
				if perr != nil {
					return perr
				}
				result, err = eng.ListAll(page, pageSize, ord)
			}
			if err != nil {
				return err
			}
			if o.json {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return writePosts(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only posts in this category (exact match)")
	cmd.Flags().StringVar(&tag, "tag", "", "only posts carrying this tag (exact match)")
	cmd.Flags().StringVar(&order, "order", "newest", "newest or oldest")
	cmd.Flags().IntVar(&page, "page", 1, "1-based page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 10, "posts per page")
	return cmd
}

func newSearchCmd(o *options) *cobra.Command {
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Rank posts against a free-text query",
		Long: heredoc.Doc(`
			Matches posts containing any query term. Title and summary hits
			weigh three times as much as body hits; ties go to the newer post.
		`),
		Example: heredoc.Doc(`
			catalogue search json security
			catalogue search "api design" --page 2
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := o.engine(cmd.Context())
			if err != nil {
				return err
			}
			result, err := eng.Search(strings.Join(args, " "), page, pageSize)
			if err != nil {
				return err
			}
			if o.json {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return writeScored(cmd.OutOrStdout(), result.Items, result.Page)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "1-based page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 10, "hits per page")
	return cmd
}

func newRelatedCmd(o *options) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "related <id>",
		Short: "Show posts sharing tags or the category with a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := o.engine(cmd.Context())
			if err != nil {
				return err
			}
			items, err := eng.Related(args[0], n)
			if err != nil {
				return err
			}
			if o.json {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"id": args[0], "items": items})
			}
			return writeScored(cmd.OutOrStdout(), items, pagination.Page[engine.ScoredPost]{})
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 3, "maximum number of related posts")
	return cmd
}

// newFacetCmd builds the categories and tags commands.
func newFacetCmd(o *options, kind string) *cobra.Command {
	return &cobra.Command{
		Use:   kind,
		Short: fmt.Sprintf("List %s with their post counts", kind),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := o.engine(cmd.Context())
			if err != nil {
				return err
			}
			var facets []index.Facet
			if kind == "categories" {
				facets, err = eng.Categories()
			} else {
				facets, err = eng.Tags()
			}
			if err != nil {
				return err
			}
			if o.json {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"items": facets})
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "NAME\tPOSTS")
			for _, f := range facets {
				fmt.Fprintf(w, "%s\t%d\n", f.Name, f.Count)
			}
			return w.Flush()
		},
	}
}
