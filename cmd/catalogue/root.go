package main

import (
	"context"
	"fmt"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue/source"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/postgres"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	path       string
	source     string
	json       bool
	verbose    bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "catalogue",
		Short: "Validate, query and export the blog catalogue",
		Long: heredoc.Doc(`
			catalogue loads the blog catalogue the same way the search service
			does and runs queries against the resulting index snapshot offline.

			The source defaults to the one in the config file; --path switches
			to a file source for a one-off run.
		`),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if o.verbose {
				level = "debug"
			}
			logger.SetupWriter(cmd.ErrOrStderr(), level, "text")

			cfg, err := config.Load(o.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if o.path != "" {
				cfg.Catalogue.Source = config.SourceFile
				cfg.Catalogue.Path = o.path
			}
			if o.source != "" {
				cfg.Catalogue.Source = o.source
			}
			o.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "path to config file")
	cmd.PersistentFlags().StringVarP(&o.path, "path", "p", "", "catalogue file or glob, overrides the configured source")
	cmd.PersistentFlags().StringVar(&o.source, "source", "", "catalogue source: file or postgres")
	cmd.PersistentFlags().BoolVar(&o.json, "json", false, "print JSON instead of tables")
	cmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newValidateCmd(o),
		newGetCmd(o),
		newListCmd(o),
		newSearchCmd(o),
		newRelatedCmd(o),
		newFacetCmd(o, "categories"),
		newFacetCmd(o, "tags"),
		newExportCmd(o),
		newInspectCmd(o),
	)
	return cmd
}

// fetch reads the raw records from the configured source.
func (o *options) fetch(ctx context.Context) ([]catalogue.RawPost, error) {
	var src source.Source
	switch o.cfg.Catalogue.Source {
	case config.SourcePostgres:
		db, err := postgres.New(o.cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
		src = source.NewPostgres(db)
	case config.SourceFile, "":
		src = source.NewFile(o.cfg.Catalogue.Path)
	default:
		return nil, fmt.Errorf("unknown catalogue source %q", o.cfg.Catalogue.Source)
	}

	if o.cfg.Catalogue.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Catalogue.FetchTimeout)
		defer cancel()
	}
	raw, err := src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching catalogue from %s: %w", src.Name(), err)
	}
	return raw, nil
}

// snapshot loads the catalogue and builds its index.
func (o *options) snapshot(ctx context.Context) (*index.Snapshot, error) {
	raw, err := o.fetch(ctx)
	if err != nil {
		return nil, err
	}
	cat, err := catalogue.Load(raw)
	if err != nil {
		return nil, err
	}
	return indexer.Build(cat, time.Now())
}

func (o *options) engine(ctx context.Context) (*engine.Engine, error) {
	snap, err := o.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return engine.NewWithSnapshot(snap), nil
}
