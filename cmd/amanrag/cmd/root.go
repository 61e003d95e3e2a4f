// Package cmd provides the CLI commands for amanrag.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanrag/internal/config"
	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/logging"
	"github.com/Aman-CERP/amanrag/pkg/version"
)

// Persistent flags.
var (
	debugMode      bool
	configFile     string
	loggingCleanup func()
)

// NewRootCmd creates the root command for amanrag CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amanrag",
		Short: "Hybrid retrieval over a documentation corpus",
		Long: `amanrag finds the passages that answer a question from an immutable
chunk corpus. Lexical (BM25), vector and fuzzy scores are fused with
category-aware reranking, and a confidence gate decides whether the
evidence is strong enough to answer or whether to ask for clarification.

Start with 'amanrag import chunks.jsonl', then 'amanrag search "..."'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("amanrag version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.amanrag/logs/")
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Use this config file instead of the user/project lookup")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newCorpusCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig resolves the effective configuration for the current
// directory, or the --config file when given.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return config.Load(cwd)
}

// startLogging installs the slog default logger. A config that fails to
// load falls back to default logging; the command reports the error.
func startLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if cfg, err := loadConfig(); err == nil {
		logCfg = cfg.LoggingConfig()
	}
	if debugMode {
		logCfg = logging.DebugConfig()
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)

	if debugMode {
		slog.Info("debug_logging_enabled",
			slog.String("log_file", logCfg.FilePath),
			slog.String("version", version.Version))
	}
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command and prints any error for the terminal.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, amerrors.FormatForCLI(err))
	}
	return err
}
