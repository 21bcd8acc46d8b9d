package cli

import (
	"fmt"

	"narrative-workers/internal/cli/formatter"
	"narrative-workers/internal/intelligence/vocabulary"

	"github.com/spf13/cobra"
)

func newSuggestCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest [DOMAIN]",
		Short: "List example questions, optionally for one domain",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vocab, err := vocabulary.FromConfig(app.Config.Intelligence)
			if err != nil {
				return err
			}

			domain := ""
			if len(args) == 1 {
				domain = args[0]
			}
			suggestions := vocab.Suggestions(domain)

			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), suggestions)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSuggestions(domain, suggestions))
			return nil
		},
	}
}
