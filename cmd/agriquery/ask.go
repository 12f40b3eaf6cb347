package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/agriquery/pkg/answer"
	"github.com/hazyhaar/agriquery/pkg/kit"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question",
		Example: `  agriquery ask "compare rainfall Maharashtra Karnataka"
  agriquery ask top crops in Punjab 2001`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			acquire, err := a.acquire()
			if err != nil {
				return err
			}

			ctx := kit.WithTransport(cmd.Context(), "cli")
			res := a.engine.Respond(ctx, acquire, strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSuffix(res.Text, "\n"))
			if res.Kind == answer.KindError {
				return errAnswerFailed
			}
			return nil
		},
	}
}
