// Package config provides hierarchical configuration management for chlog using koanf.
// Configuration is loaded with priority: environment variables > project config (.chlog.yml)
// > user config (~/.config/chlog/config.yml) > defaults. The project config may also be
// written as JSON in .chlog.json; .chlog.yml wins when both exist.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ariel-frischer/chlog/internal/changelog"
	"github.com/ariel-frischer/chlog/internal/reconcile"
)

const envPrefix = "CHLOG_"

// Configuration represents the chlog CLI tool configuration
type Configuration struct {
	// Changelog is the path of the changelog file, relative to the project root.
	Changelog string `koanf:"changelog" yaml:"changelog" json:"changelog" validate:"required"`
	// RepoURL is the web URL of the repository, e.g. https://github.com/owner/repo.
	// When empty it is discovered from package.json or the origin remote.
	RepoURL   string    `koanf:"repo_url" yaml:"repo_url" json:"repo_url" validate:"omitempty,url"`
	TagPrefix string    `koanf:"tag_prefix" yaml:"tag_prefix" json:"tag_prefix"`
	TagRename TagRename `koanf:"tag_rename" yaml:"tag_rename" json:"tag_rename"`

	// Categorize is "conventional" or "off".
	Categorize string `koanf:"categorize" yaml:"categorize" json:"categorize" validate:"oneof=off conventional"`
	// EntrySource is "subject" or "explicit".
	EntrySource      string `koanf:"entry_source" yaml:"entry_source" json:"entry_source" validate:"oneof=subject explicit"`
	RequirePRNumbers bool   `koanf:"require_pr_numbers" yaml:"require_pr_numbers" json:"require_pr_numbers"`
	ShortLinks       bool   `koanf:"short_links" yaml:"short_links" json:"short_links"`
	RequirePRLinks   bool   `koanf:"require_pr_links" yaml:"require_pr_links" json:"require_pr_links"`

	// Manifest is the dependency manifest checked by 'chlog deps'. Empty means
	// package.json or go.mod, whichever exists.
	Manifest string `koanf:"manifest" yaml:"manifest" json:"manifest"`
	// GitBackend selects the history source: "native" (go-git) or "cli".
	GitBackend     string        `koanf:"git_backend" yaml:"git_backend" json:"git_backend" validate:"oneof=native cli"`
	CommandTimeout time.Duration `koanf:"command_timeout" yaml:"command_timeout" json:"command_timeout" validate:"min=0"`

	// GitHubToken authenticates pull request lookups. Falls back to GITHUB_TOKEN.
	GitHubToken    string `koanf:"github_token" yaml:"github_token" json:"github_token"`
	FetchPREntries bool   `koanf:"fetch_pr_entries" yaml:"fetch_pr_entries" json:"fetch_pr_entries"`
}

// TagRename describes a change of tag prefix: versions below Version were
// tagged with OldPrefix.
type TagRename struct {
	Version   string `koanf:"version" yaml:"version" json:"version" validate:"omitempty,semver"`
	OldPrefix string `koanf:"old_prefix" yaml:"old_prefix" json:"old_prefix"`
}

// TagScheme returns the tag naming of the configured project.
func (c *Configuration) TagScheme() changelog.TagScheme {
	return changelog.TagScheme{
		Prefix:    c.TagPrefix,
		RenamedAt: c.TagRename.Version,
		OldPrefix: c.TagRename.OldPrefix,
	}
}

// ReconcileOptions returns the update options implied by the configuration.
func (c *Configuration) ReconcileOptions() reconcile.Options {
	return reconcile.Options{
		RepoURL:          c.RepoURL,
		Tags:             c.TagScheme(),
		Categorize:       reconcile.CategorizeMode(c.Categorize),
		EntrySource:      reconcile.EntrySource(c.EntrySource),
		RequirePRNumbers: c.RequirePRNumbers,
		ShortLinks:       c.ShortLinks,
	}
}

// Redacted returns a copy safe to print.
func (c Configuration) Redacted() Configuration {
	if c.GitHubToken != "" {
		c.GitHubToken = "********"
	}
	return c
}

// LoadOptions configures how configuration is loaded
type LoadOptions struct {
	// ProjectDir holds .chlog.yml (default: current directory)
	ProjectDir string
	// WarningWriter receives deprecation warnings (default: os.Stderr)
	WarningWriter io.Writer
	// SkipWarnings suppresses deprecation warnings
	SkipWarnings bool
}

// Load loads configuration from user, project, and environment sources.
// Priority: Environment variables > Project config > User config > Defaults
func Load(projectDir string) (*Configuration, error) {
	return LoadWithOptions(LoadOptions{ProjectDir: projectDir})
}

// LoadWithOptions loads configuration with custom options
func LoadWithOptions(opts LoadOptions) (*Configuration, error) {
	k := koanf.New(".")
	warningWriter := opts.WarningWriter
	if warningWriter == nil {
		warningWriter = os.Stderr
	}

	loadDefaults(k)

	if err := loadUserConfig(k); err != nil {
		return nil, err
	}

	if err := loadProjectConfig(k, opts.ProjectDir, warningWriter, opts.SkipWarnings); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	return finalizeConfig(k)
}

func loadDefaults(k *koanf.Koanf) {
	for key, value := range GetDefaults() {
		k.Set(key, value)
	}
}

// loadUserConfig loads ~/.config/chlog/config.yml when present.
func loadUserConfig(k *koanf.Koanf) error {
	path, err := UserConfigPath()
	if err != nil || !fileExists(path) {
		return nil
	}
	if err := loadYAMLConfig(k, path, "user"); err != nil {
		return fmt.Errorf("loading user config: %w", err)
	}
	return nil
}

// loadProjectConfig loads .chlog.yml, or .chlog.json when only that exists.
// A .chlog.json next to a .chlog.yml is ignored with a warning.
func loadProjectConfig(k *koanf.Koanf, dir string, warningWriter io.Writer, skipWarnings bool) error {
	yamlPath := filepath.Join(dir, ProjectConfigPath())
	jsonPath := filepath.Join(dir, JSONProjectConfigPath())

	switch {
	case fileExists(yamlPath):
		if err := loadYAMLConfig(k, yamlPath, "project"); err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		if fileExists(jsonPath) && !skipWarnings {
			fmt.Fprintf(warningWriter, "Warning: JSON config found at %s (ignored, using %s)\n", jsonPath, yamlPath)
			fmt.Fprintf(warningWriter, "  Keep one project config; 'chlog config migrate' converts JSON to YAML.\n\n")
		}
	case fileExists(jsonPath):
		if err := k.Load(file.Provider(jsonPath), json.Parser()); err != nil {
			return fmt.Errorf("failed to load project config %s: %w", jsonPath, err)
		}
	}
	return nil
}

// loadYAMLConfig validates and loads a YAML config file
func loadYAMLConfig(k *koanf.Koanf, path, configType string) error {
	if err := ValidateYAMLSyntax(path); err != nil {
		return fmt.Errorf("validating YAML syntax for %s config: %w", configType, err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load %s config %s: %w", configType, path, err)
	}
	return nil
}

// finalizeConfig unmarshals, validates, and applies final transformations
func finalizeConfig(k *koanf.Koanf) (*Configuration, error) {
	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.GitHubToken == "" {
		cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")
	}
	cfg.RepoURL = strings.TrimSuffix(cfg.RepoURL, "/")

	if err := ValidateConfigValues(&cfg, "config"); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// fileExists returns true if the file exists and is readable
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// envTransform converts environment variable names to config keys.
// Example: CHLOG_TAG_RENAME_OLD_PREFIX -> tag_rename.old_prefix
func envTransform(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if rest, ok := strings.CutPrefix(key, "tag_rename_"); ok {
		return "tag_rename." + rest
	}
	return key
}
