package cli

import (
	"context"
	"fmt"
	"strings"

	"narrative-workers/internal/app"
	"narrative-workers/internal/cli/formatter"
	"narrative-workers/internal/intelligence/orchestrator"

	"github.com/spf13/cobra"
)

func newAskCmd(a *App) *cobra.Command {
	var (
		domain   string
		mode     string
		separate bool
	)

	cmd := &cobra.Command{
		Use:   "ask QUERY...",
		Short: "Answer a question from the local records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			retriever, closeStore, err := a.openRetriever(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			orch, err := app.NewOrchestrator(a.Config, retriever, nil, nil, a.Logger)
			if err != nil {
				return err
			}

			plan, err := orch.Run(ctx, orchestrator.Request{
				Query:          strings.Join(args, " "),
				DomainHint:     domain,
				ForceMode:      mode,
				SeparateImages: separate || a.Config.Template.SeparateImages,
			})
			if err != nil {
				return err
			}

			resp := plan.Response()
			if a.JSON {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatResponse(resp))
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "domain hint")
	cmd.Flags().StringVar(&mode, "mode", "", "force the output mode (data or story)")
	cmd.Flags().BoolVar(&separate, "separate-images", false, "use the carousel template for stories")
	return cmd
}
