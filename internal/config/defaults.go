package config

import "time"

// DefaultChangelog is the changelog file used when none is configured.
const DefaultChangelog = "CHANGELOG.md"

// GetDefaultConfigTemplate returns a fully commented config template
// that helps users understand all available options
func GetDefaultConfigTemplate() string {
	return `# chlog configuration
# See 'chlog config keys' for all options

changelog: CHANGELOG.md               # Changelog file
repo_url: ""                          # https://github.com/owner/repo (empty = package.json or git origin)
tag_prefix: v                         # Tags are <prefix><version>, e.g. v1.2.0 or pkg@1.2.0

# Versions below tag_rename.version were tagged with tag_rename.old_prefix
tag_rename:
  version: ""
  old_prefix: ""

# Update settings
categorize: conventional              # conventional | off
entry_source: subject                 # subject | explicit
require_pr_numbers: false             # Skip commits without a (#N) pull request number
short_links: false                    # Write (#N) instead of ([#N](url))
fetch_pr_entries: false               # Read "## Changelog" sections from pull request bodies
github_token: ""                      # Token for pull request lookups (default: $GITHUB_TOKEN)

# Validation settings
require_pr_links: false               # Every released entry must reference a pull request

# Dependency bump checks
manifest: ""                          # package.json | go.mod (empty = whichever exists)

# Collaborators
git_backend: native                   # native (go-git) | cli (git binary)
command_timeout: 30s                  # Timeout for external commands
`
}

// GetDefaults returns the default configuration values
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"changelog":  DefaultChangelog,
		"repo_url":   "",
		"tag_prefix": "v",
		"tag_rename": map[string]interface{}{
			"version":    "",
			"old_prefix": "",
		},
		"categorize":         "conventional",
		"entry_source":       "subject",
		"require_pr_numbers": false,
		"short_links":        false,
		"require_pr_links":   false,
		"manifest":           "",
		"git_backend":        "native",
		"command_timeout":    (30 * time.Second).String(),
		"github_token":       "",
		"fetch_pr_entries":   false,
	}
}
