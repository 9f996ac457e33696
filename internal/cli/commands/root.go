package commands

import (
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/reflector/internal/cli/config"
	"github.com/conduit-lang/reflector/internal/cli/ui"
	"github.com/conduit-lang/reflector/internal/logging"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// app is the state shared by every subcommand, filled in before a subcommand runs
type app struct {
	configPath string
	noColor    bool

	cfg    *config.Config
	logger *zap.Logger
}

// messageError carries a formatted message to print instead of the plain error text
type messageError struct {
	err error
	msg ui.Message
}

func (e *messageError) Error() string { return e.err.Error() }
func (e *messageError) Unwrap() error { return e.err }

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "reflector",
		Short: "Database catalog introspection and relationship classification",
		Long: color.CyanString(`Reflector - relationship discovery for relational schemas

Reflector reads the catalog of a live database, or a snapshot file of it,
and classifies how its tables relate to each other:
  • has-one through a foreign key column
  • extension tables sharing the primary key
  • has-many, directly or through a link table`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default ./reflector.yml)")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newRelationsCommand(a))
	rootCmd.AddCommand(newInspectCommand(a))
	rootCmd.AddCommand(newPoolCommand(a))
	rootCmd.AddCommand(newCacheCommand(a))

	return rootCmd
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	if a.noColor {
		color.NoColor = true
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		var me *messageError
		if errors.As(err, &me) {
			me.msg.Write(rootCmd.ErrOrStderr())
		} else {
			ui.Message{Level: ui.LevelError, Problem: err.Error()}.Write(rootCmd.ErrOrStderr())
		}
		return err
	}
	return nil
}
