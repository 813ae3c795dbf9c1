// Package config provides the 'chlog config' commands.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ariel-frischer/chlog/internal/cli/shared"
	"github.com/ariel-frischer/chlog/internal/config"
	clierrors "github.com/ariel-frischer/chlog/internal/errors"
)

// ConfigCmd groups the configuration subcommands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage chlog configuration",
	Long: `Manage chlog configuration settings.

Configuration is loaded with the following priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (CHLOG_*)
  3. Project config (.chlog.yml, or .chlog.json)
  4. User config (~/.config/chlog/config.yml)
  5. Built-in defaults`,
	Example: `  # Show current configuration
  chlog config show

  # Set a configuration value
  chlog config set tag_prefix pkg@

  # Write a commented project config
  chlog config init`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List all configuration keys",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printKeys(cmd.OutOrStdout())
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Example: `  chlog config set short_links true
  chlog config set tag_rename.version 2.0.0
  chlog config set --user github_token ghp_xxx`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented .chlog.yml",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Convert .chlog.json to .chlog.yml",
	Args:  cobra.NoArgs,
	RunE:  runConfigMigrate,
}

func init() {
	ConfigCmd.GroupID = shared.GroupConfiguration
	ConfigCmd.AddCommand(configShowCmd, configKeysCmd, configSetCmd, configInitCmd, configMigrateCmd)

	configShowCmd.Flags().Bool("json", false, "Output in JSON format")
	configSetCmd.Flags().Bool("user", false, "Write to the user config instead of .chlog.yml")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing .chlog.yml")
	configMigrateCmd.Flags().Bool("dry-run", false, "Report what would be migrated without writing")
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	dir, err := shared.ProjectDir(cmd)
	if err != nil {
		return clierrors.Wrap(err, clierrors.Argument)
	}
	cfg, err := config.LoadWithOptions(config.LoadOptions{ProjectDir: dir, WarningWriter: cmd.ErrOrStderr()})
	if err != nil {
		return clierrors.Wrap(err, clierrors.Configuration)
	}

	out := cmd.OutOrStdout()
	printSources(out, dir)

	redacted := cfg.Redacted()
	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(redacted)
	}
	data, err := yaml.Marshal(redacted)
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// printSources lists the config files and whether they exist.
func printSources(w io.Writer, dir string) {
	dim := color.New(color.Faint).SprintFunc()
	fmt.Fprintln(w, dim("# Configuration Sources"))

	if userPath, err := config.UserConfigPath(); err == nil {
		fmt.Fprintln(w, dim(fmt.Sprintf("#   user:    %s%s", userPath, missingMark(userPath))))
	}
	projectPath := filepath.Join(dir, config.ProjectConfigPath())
	fmt.Fprintln(w, dim(fmt.Sprintf("#   project: %s%s", projectPath, missingMark(projectPath))))
	fmt.Fprintln(w)
}

func missingMark(path string) string {
	if _, err := os.Stat(path); err != nil {
		return " (not found)"
	}
	return ""
}

func printKeys(w io.Writer) {
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	for _, key := range config.SortedKeys() {
		schema := config.KnownKeys[key]
		fmt.Fprintf(w, "%s %s\n", bold(key), dim("("+schema.Type.String()+")"))
		fmt.Fprintf(w, "    %s\n", schema.Description)
		if len(schema.AllowedValues) > 0 {
			fmt.Fprintf(w, "    values: %v\n", schema.AllowedValues)
		}
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, err := targetConfigPath(cmd)
	if err != nil {
		return err
	}
	if err := config.SetConfigValue(path, args[0], args[1]); err != nil {
		return clierrors.NewConfigError(err.Error(), "List valid keys with: chlog config keys")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", args[0], path)
	return nil
}

func targetConfigPath(cmd *cobra.Command) (string, error) {
	user, _ := cmd.Flags().GetBool("user")
	if user {
		path, err := config.UserConfigPath()
		if err != nil {
			return "", clierrors.WrapWithMessage(err, clierrors.Configuration, "locating user config")
		}
		return path, nil
	}
	dir, err := shared.ProjectDir(cmd)
	if err != nil {
		return "", clierrors.Wrap(err, clierrors.Argument)
	}
	return filepath.Join(dir, config.ProjectConfigPath()), nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	dir, err := shared.ProjectDir(cmd)
	if err != nil {
		return clierrors.Wrap(err, clierrors.Argument)
	}
	path := filepath.Join(dir, config.ProjectConfigPath())
	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		return clierrors.NewArgumentError(
			fmt.Sprintf("config already exists: %s", path),
			"Use --force to overwrite it",
		)
	}
	if err := os.WriteFile(path, []byte(config.GetDefaultConfigTemplate()), 0o644); err != nil {
		return clierrors.FileNotWritable(path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
	return nil
}

func runConfigMigrate(cmd *cobra.Command, _ []string) error {
	dir, err := shared.ProjectDir(cmd)
	if err != nil {
		return clierrors.Wrap(err, clierrors.Argument)
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	result, err := config.MigrateProjectConfig(dir, dryRun)
	if err != nil {
		return clierrors.Wrap(err, clierrors.Configuration)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Message)
	if result.Success && !dryRun {
		if err := config.BackupJSONConfig(result.SourcePath, false); err != nil {
			return clierrors.Wrap(err, clierrors.Runtime)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "JSON config kept as %s.bak\n", result.SourcePath)
	}
	return nil
}
