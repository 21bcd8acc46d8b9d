package cli

import (
	"context"
	"fmt"

	"narrative-workers/internal/cli/formatter"
	"narrative-workers/internal/retrieval"

	"github.com/spf13/cobra"
)

func newSeedCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Load a JSON record fixture into the sqlite store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			fixture, err := retrieval.LoadFixture(args[0])
			if err != nil {
				return err
			}
			records := fixture.Records()

			store, closeStore, err := app.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Seed(ctx, records); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s records into %s\n",
				formatter.Bold(fmt.Sprint(len(records))), app.DBPath)
			return nil
		},
	}
}
