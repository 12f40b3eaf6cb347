package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/agriquery/pkg/crops"
	"github.com/hazyhaar/agriquery/pkg/dataset"
	"github.com/hazyhaar/agriquery/pkg/rainfall"
	"github.com/hazyhaar/agriquery/pkg/schema"
)

func newSchemaCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show how dataset columns resolve to roles",
		Long: `Fetch both datasets and print, for every column role the answers read,
the header column it resolved to. Unresolved roles print as "-".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			acquire, err := a.acquire()
			if err != nil {
				return err
			}
			ds, err := acquire(cmd.Context())
			if err != nil {
				return err
			}

			resolver := schema.Default(a.logger)
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Dataset", "Role", "Index", "Header"})

			for _, d := range []struct {
				name  string
				text  string
				roles []schema.Role
			}{
				{"rainfall", ds.Rainfall, rainfall.Columns},
				{"crops", ds.Crops, crops.Columns},
			} {
				tbl, err := dataset.Parse(d.name, d.text)
				if err != nil {
					return err
				}
				cols := resolver.Resolve(tbl.Header, d.roles...)
				for _, role := range cols.Roles() {
					idx := cols.Index(role)
					header := "-"
					if h, ok := dataset.Cell(tbl.Header, idx); ok {
						header = h
					}
					t.AppendRow(table.Row{d.name, string(role), idx, header})
				}
				t.AppendSeparator()
			}
			t.Render()
			return nil
		},
	}
}
