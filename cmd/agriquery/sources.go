package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/agriquery/pkg/source"
)

func newSourcesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Inspect and change where datasets are read from",
		Long: `Manage the source table. Configured locations seed it on first use;
after that the stored location wins over the config file and environment.
Use "sources set" to change it, or pass --crops/--rainfall for a single run.`,
	}
	cmd.AddCommand(
		newSourcesListCmd(opts),
		newSourcesSetCmd(opts),
		newSourcesCheckCmd(opts),
	)
	return cmd
}

// withSources opens the app and seeds the source table.
func withSources(cmd *cobra.Command, opts *rootOptions, fn func(*app) error) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.db == nil {
		return fmt.Errorf("source table disabled (sources_db is empty)")
	}
	if _, _, err := a.specs(); err != nil {
		return err
	}
	return fn(a)
}

func newSourcesListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List dataset locations with their last fetch and check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSources(cmd, opts, func(a *app) error {
				records, err := a.db.List()
				if err != nil {
					return err
				}
				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"Name", "Location", "Encoding", "Fetched", "Fetch", "Checked", "Check"})
				for _, r := range records {
					t.AppendRow(table.Row{
						r.Name, r.Location, r.Encoding,
						when(r.LastFetch), status(r.FetchStatus),
						when(r.LastCheck), status(r.CheckStatus),
					})
				}
				t.Render()
				return nil
			})
		},
	}
}

func newSourcesSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "set <name> <location>",
		Short:   "Change the location of a dataset",
		Example: `  agriquery sources set rainfall https://example.org/rainfall.csv`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSources(cmd, opts, func(a *app) error {
				if err := a.db.Set(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newSourcesCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check every dataset location once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSources(cmd, opts, func(a *app) error {
				results, err := source.NewChecker(a.db, a.logger, a.cfg.CheckInterval).CheckAll(cmd.Context())
				if err != nil {
					return err
				}
				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"Name", "Location", "Status", "Reachable", "Error"})
				for _, r := range results {
					errText := ""
					if r.Err != nil {
						errText = r.Err.Error()
					}
					t.AppendRow(table.Row{r.Name, r.Location, r.Status, r.OK(), errText})
				}
				t.Render()
				return nil
			})
		},
	}
}

func when(ts *int64) string {
	if ts == nil {
		return "never"
	}
	return time.Unix(*ts, 0).UTC().Format(time.RFC3339)
}

func status(code *int) string {
	if code == nil {
		return "-"
	}
	return strconv.Itoa(*code)
}
