package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yourusername/pipedsl/internal/observability"
)

var (
	envFile   string
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "pipedsl",
	Short:         "Run batches of heterogeneous tasks concurrently",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}

		level := getEnv("LOG_LEVEL", "info")
		if getEnvBool("DEBUG", false) {
			level = "debug"
		}
		_, logCloser = observability.SetupLogger(observability.LogConfig{
			Level:  level,
			Format: getEnv("LOG_FORMAT", "json"),
			File:   os.Getenv("LOG_FILE"),
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with PIPEDSL_* settings")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(kindsCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
