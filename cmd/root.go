package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/rutealo/internal/app"
	"github.com/abhisek/rutealo/internal/config"
	"github.com/abhisek/rutealo/internal/logger"
	"github.com/abhisek/rutealo/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "rutealo",
	Short: "Bloom-level diagnostics and learning paths",
	Long: "Rutealo evaluates diagnostic exams against Bloom's taxonomy, locates each learner's\n" +
		"zone of proximal development and generates personalized study paths.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		loaded, err := config.LoadEnvFile(envFile)
		if err != nil {
			return err
		}
		if loaded != "" {
			fmt.Fprintln(os.Stderr, "loaded environment from", loaded)
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides RUTEALO_DB env var)")
	rootCmd.PersistentFlags().String("env-file", "", "Environment file to load (default: .env, then claves.env)")
	rootCmd.PersistentFlags().String("log", "", "Log mode: dev or prod (default: RUTEALO_ENV)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(materialsCmd)
	rootCmd.AddCommand(examCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then RUTEALO_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Store.DBPath == "" || cmd.Flags().Changed("db") {
		p, err := resolveDBPath(cmd)
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		cfg.Store.DBPath = p
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*logger.Logger, error) {
	mode, _ := cmd.Flags().GetString("log")
	if mode == "" {
		mode = cfg.Env
	}
	return logger.New(mode)
}

// openApp builds the application for one command. The caller closes it.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	a, err := app.New(cmd.Context(), cfg, app.WithLogger(log))
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open app: %w", err)
	}
	return a, nil
}

func closeApp(cmd *cobra.Command, a *app.App) {
	if err := a.Close(context.WithoutCancel(cmd.Context())); err != nil {
		fmt.Fprintln(os.Stderr, "close:", err)
	}
	a.Log.Sync()
}
