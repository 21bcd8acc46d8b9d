package cli

import (
	"encoding/json"
	"io"

	"narrative-workers/internal/common/config"
	"narrative-workers/internal/common/logger"

	"github.com/spf13/cobra"
)

// App holds what every narrative-cli command needs. Config may be left nil;
// the root command then loads it from --config or the default search path.
type App struct {
	Config *config.Config
	Logger logger.Logger

	ConfigPath string
	Fixture    string
	DBPath     string
	JSON       bool
}

// NewRootCmd creates the top-level "narrative-cli" command and registers all
// subcommands against app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "narrative-cli",
		Short: "Ask questions about public data and get stories back",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.ConfigPath, "config", app.ConfigPath, "path to a config file")
	flags.StringVar(&app.Fixture, "fixture", app.Fixture, "answer from a JSON record fixture instead of the sqlite store")
	flags.StringVar(&app.DBPath, "db", app.DBPath, "sqlite record store (default from database.sqlite.path)")
	flags.BoolVar(&app.JSON, "json", app.JSON, "print JSON instead of formatted output")

	root.AddCommand(
		newAnalyzeCmd(app),
		newAskCmd(app),
		newSeedCmd(app),
		newSuggestCmd(app),
	)

	return root
}

func (a *App) init() error {
	if a.Logger == nil {
		a.Logger = logger.NewNoOpLogger()
	}
	if a.Config == nil {
		if a.ConfigPath != "" {
			cfg, err := config.LoadFromFile(a.ConfigPath)
			if err != nil {
				return err
			}
			a.Config = cfg
		} else if cfg, err := config.Load(); err == nil {
			a.Config = cfg
		} else {
			// backend checks do not apply to sqlite and fixtures
			a.Logger.Warn("using default configuration", map[string]interface{}{"error": err.Error()})
			a.Config = config.Defaults()
		}
	}
	if a.DBPath == "" {
		a.DBPath = a.Config.Database.SQLite.Path
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
