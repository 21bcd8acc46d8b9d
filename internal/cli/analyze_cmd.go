package cli

import (
	"fmt"
	"strings"

	"narrative-workers/internal/cli/formatter"
	"narrative-workers/internal/intelligence/analyzer"
	"narrative-workers/internal/intelligence/vocabulary"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd(app *App) *cobra.Command {
	var domain string

	cmd := &cobra.Command{
		Use:   "analyze QUERY...",
		Short: "Show how a question is understood",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vocab, err := vocabulary.FromConfig(app.Config.Intelligence)
			if err != nil {
				return err
			}

			analysis, err := analyzer.New(vocab, app.Logger).Analyze(strings.Join(args, " "), domain)
			if err != nil {
				return err
			}

			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), analysis)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatAnalysis(analysis))
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "domain hint")
	return cmd
}
