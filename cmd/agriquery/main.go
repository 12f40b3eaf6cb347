// Command agriquery answers rainfall and crop questions over two CSV datasets.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hazyhaar/agriquery/pkg/answer"
	"github.com/hazyhaar/agriquery/pkg/config"
	"github.com/hazyhaar/agriquery/pkg/region"
	"github.com/hazyhaar/agriquery/pkg/source"
)

// Version is set at build time.
var Version = "0.1.0"

// errAnswerFailed signals a fatal answer that was already printed.
var errAnswerFailed = errors.New("answer failed")

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errAnswerFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

type rootOptions struct {
	cfgFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "agriquery",
		Short: "Answer rainfall and crop questions over Indian agriculture datasets",
		Long: `agriquery answers two kinds of questions:

  compare rainfall Maharashtra Karnataka   average annual rainfall over the last 10 years
  top crops Punjab 2001                    the three highest-production crops for a state and year

Datasets are read from local paths or http(s) URLs.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.cfgFile, "config", "", "config file (default: ./agriquery.yaml)")
	pf.String("crops", "", "crop production dataset (path or URL)")
	pf.String("rainfall", "", "rainfall dataset (path or URL)")
	pf.String("encoding", "", "dataset charset when not UTF-8 (e.g. windows-1252)")
	pf.String("regions", "", "region registry YAML replacing the bundled one")
	pf.String("db", "", "source table database (empty string disables it)")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.Duration("fetch-timeout", 0, "timeout for acquiring both datasets")
	pf.Int("fetch-attempts", 0, "HTTP attempts per dataset")

	root.AddCommand(
		newAskCmd(opts),
		newSchemaCmd(opts),
		newServeCmd(opts),
		newMCPCmd(opts),
		newSourcesCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agriquery v%s\n", Version)
		},
	}
}

// app holds what every command builds from the merged configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	engine  *answer.Engine
	db      *source.DB
	fetcher *source.Fetcher
	flags   *pflag.FlagSet
}

func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	lvl, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))

	engineOpts := []answer.Option{answer.WithLogger(logger)}
	if cfg.RegionsFile != "" {
		reg, err := region.Load(cfg.RegionsFile)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, answer.WithRegistry(reg))
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		engine: answer.New(engineOpts...),
		flags:  cmd.Flags(),
	}
	if cfg.SourcesDB != "" {
		db, err := source.OpenDB(cfg.SourcesDB)
		if err != nil {
			return nil, err
		}
		a.db = db
	}
	a.fetcher = &source.Fetcher{Attempts: cfg.FetchAttempts, Logger: logger, DB: a.db}
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// specs returns where to read both datasets. With a source table, the
// configured locations seed it and the stored rows win, unless the location
// was passed explicitly on the command line.
func (a *app) specs() (crop, rain source.Spec, err error) {
	crop = source.Spec{
		Name:        source.Crops,
		Location:    a.cfg.CropsSource,
		Encoding:    a.cfg.Encoding,
		Description: "crop production by state, district, year and crop",
	}
	rain = source.Spec{
		Name:        source.Rainfall,
		Location:    a.cfg.RainfallSource,
		Encoding:    a.cfg.Encoding,
		Description: "annual rainfall by meteorological subdivision and year",
	}
	if a.db == nil {
		return crop, rain, nil
	}
	if err := a.db.Seed(crop, rain); err != nil {
		return crop, rain, err
	}
	for flag, s := range map[string]*source.Spec{"crops": &crop, "rainfall": &rain} {
		if a.flags.Changed(flag) {
			continue
		}
		stored, err := a.db.Get(s.Name)
		if err != nil {
			return crop, rain, err
		}
		*s = stored
	}
	return crop, rain, nil
}

// acquire fetches both datasets under the configured timeout.
func (a *app) acquire() (answer.AcquireFunc, error) {
	crop, rain, err := a.specs()
	if err != nil {
		return nil, err
	}
	fetch := answer.FromSources(a.fetcher, crop, rain)
	if a.cfg.FetchTimeout <= 0 {
		return fetch, nil
	}
	return func(ctx context.Context) (answer.Datasets, error) {
		ctx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
		defer cancel()
		return fetch(ctx)
	}, nil
}
