// Package commands implements savetrackctl, the administration CLI for a
// savetrack SQLite database.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"savetrack/internal/cli"
	"savetrack/internal/config"
	applog "savetrack/internal/log"
	"savetrack/internal/services"
	"savetrack/internal/storage"
)

type rootOptions struct {
	dbPath      string
	trackerFile string
	cfg         *config.Config
	logger      *applog.Logger
}

func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree. Each call returns independent state.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "savetrackctl",
		Short:         "Inspect and maintain savetrack data",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Logs go to stderr so exports can be piped from stdout.
			logCfg := applog.ConfigFromEnv(applog.ComponentCLI)
			logCfg.Output = cmd.ErrOrStderr()
			if os.Getenv("LOG_LEVEL") == "" {
				logCfg.Level = slog.LevelWarn
			}
			opts.logger = applog.New(logCfg)
			applog.SetDefault(opts.logger)
			cli.LoadEnvFile(opts.logger)

			cfg := config.Load()
			if opts.trackerFile != "" {
				cfg.TrackerFile = opts.trackerFile
			}
			if err := cfg.LoadTracker(); err != nil {
				return err
			}
			if err := cfg.Tracker.Validate(); err != nil {
				return err
			}
			if opts.dbPath != "" {
				cfg.SQLiteDBPath = opts.dbPath
			}
			opts.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default $SQLITE_DB_PATH)")
	root.PersistentFlags().StringVar(&opts.trackerFile, "config", "", "tracker TOML file (default $SAVETRACK_CONFIG)")

	root.AddCommand(calcCmd(opts), migrateCmd(opts), exportCmd(opts), importCmd(opts))
	return root
}

// service opens the database and returns a service without a sync publisher.
// Stored entries stay pending until the worker's periodic scan mirrors them.
func (o *rootOptions) service() (*services.SavingsService, *storage.SQLiteRepository, error) {
	repo, err := cli.InitSQLite(o.logger, o.cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, err
	}
	svc := services.NewSavingsService(repo, nil, services.WithScale(o.cfg.Tracker.Scale()))
	return svc, repo, nil
}
