package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/artlens/orbmatch/internal/config"
	"github.com/spf13/cobra"
)

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "artscan",
		Short:         "Identify artworks from photos",
		Long:          `Match photos against a directory of reference images using ORB features.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)
	rootCmd.AddCommand(
		NewServeCmd(),
		NewIndexCmd(),
		NewMatchCmd(),
		NewSeedCmd(),
		NewVersionCmd(version),
	)

	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", config.DefaultFilename, "Path of the YAML config file")
	cmd.PersistentFlags().String("env-file", ".env", "Path of the .env file")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
}

func NewVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// loadConfig resolves the config of a command: defaults, then the config
// file, then the environment, then the flags the command defines.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, nil, err
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if f := flags.Lookup("addr"); f != nil && f.Changed {
		cfg.Server.Addr = f.Value.String()
	}
	if f := flags.Lookup("snapshot"); f != nil && f.Changed {
		cfg.Index.Snapshot = f.Value.String()
	}
	if f := flags.Lookup("reference-dir"); f != nil && f.Changed {
		cfg.Index.Dir = f.Value.String()
	}
	if flags.Lookup("min-score") != nil && flags.Changed("min-score") {
		cfg.Match.MinScore, _ = flags.GetFloat64("min-score")
	}

	logger, err := cfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}
