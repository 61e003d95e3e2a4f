package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanrag/configs"
	"github.com/Aman-CERP/amanrag/internal/config"
	"github.com/Aman-CERP/amanrag/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage amanrag configuration",
		Long: `Manage amanrag configuration.

Settings are layered: built-in defaults, then the user config
(~/.config/amanrag/config.yaml), then the project config (.amanrag.yaml),
then AMANRAG_* environment variables.`,
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigPathCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the layered configuration for errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// loadConfig validates the file form; conversion catches the rest.
			if _, err := cfg.SearchConfig(); err != nil {
				return err
			}
			if _, err := cfg.EmbedderConfig(); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Success("Configuration is valid")
			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default user configuration",
		Long: `Write a commented configuration file with the built-in defaults to
~/.config/amanrag/config.yaml. An existing file is kept unless --force is
given, in which case it is backed up first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())
			backup, err := config.WriteUserConfig([]byte(configs.ConfigTemplate), force)
			if err != nil {
				return err
			}
			if backup != "" {
				out.Dim("Previous config saved to " + backup)
			}
			out.Successf("Wrote %s", config.GetUserConfigPath())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing user config (a backup is kept)")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show where configuration is read from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())
			user := config.GetUserConfigPath()
			out.KeyValue("user", describePath(user))

			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			if p := config.ProjectConfigPath(cwd); p != "" {
				out.KeyValue("project", describePath(p))
			} else {
				out.KeyValue("project", "(none)")
			}
			if configFile != "" {
				out.KeyValue("--config", describePath(configFile))
			}
			return nil
		},
	}
}

func describePath(p string) string {
	if _, err := os.Stat(p); err != nil {
		return fmt.Sprintf("%s (missing)", p)
	}
	return p
}
