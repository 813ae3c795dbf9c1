package errors

import (
	"fmt"
	"time"
)

// Common error messages for the chlog CLI.

// ChangelogNotFound creates an error for a missing changelog file.
func ChangelogNotFound(path string) *CLIError {
	return &CLIError{
		Category: Document,
		Message:  fmt.Sprintf("changelog not found: %s", path),
		Remediation: []string{
			"Create one with: chlog init",
			"Or point to an existing file with --file or the 'changelog' config key",
		},
	}
}

// ChangelogExists creates an error when init would overwrite a changelog.
func ChangelogExists(path string) *CLIError {
	return NewArgumentError(
		fmt.Sprintf("changelog already exists: %s", path),
		"Use --force to overwrite it",
	)
}

// MalformedChangelog wraps a parse failure of the changelog at path.
func MalformedChangelog(path string, err error) *CLIError {
	return WrapWithMessage(err, Document,
		fmt.Sprintf("cannot parse %s", path),
		"Fix the line reported above; chlog never rewrites a file it cannot parse",
		"Check the result with: chlog validate",
	)
}

// ValidationFailed wraps an aggregated validation failure.
func ValidationFailed(err error) *CLIError {
	return Wrap(err, Validation,
		"Run 'chlog update' to add missing entries",
		"Run 'chlog deps --fix' to repair dependency bump entries",
	)
}

// RepoURLUnknown creates an error when no repository URL can be determined.
func RepoURLUnknown() *CLIError {
	return NewConfigError(
		"cannot determine the repository URL",
		"Set it in .chlog.yml: repo_url: https://github.com/owner/repo",
		"Or export CHLOG_REPO_URL",
		"Or add a 'repository' field to package.json or an 'origin' git remote",
	)
}

// ConfigParseError creates an error for an invalid config file.
func ConfigParseError(path string, err error) *CLIError {
	return WrapWithMessage(err, Configuration,
		fmt.Sprintf("failed to parse config file: %s", path),
		"Check the file for YAML syntax errors",
		"Show the effective configuration with: chlog config show",
	)
}

// InvalidFlagCombination creates an error for incompatible flag combinations.
func InvalidFlagCombination(flags string, reason string) *CLIError {
	return NewArgumentError(
		fmt.Sprintf("invalid flag combination: %s", flags),
		reason,
		"Use 'chlog <command> --help' to see valid options",
	)
}

// CollaboratorFailed wraps a failure of git, the command runner or GitHub.
func CollaboratorFailed(err error) *CLIError {
	return Wrap(err, Collaborator,
		"Check that git is installed and the directory is a repository",
		"Re-run with --debug for details",
	)
}

// TimeoutError creates an error when a command times out.
func TimeoutError(timeout time.Duration, command string) *CLIError {
	return NewRuntimeError(
		fmt.Sprintf("command timed out after %s: %s", timeout, command),
		"Increase the timeout: CHLOG_COMMAND_TIMEOUT=2m",
		"Or set command_timeout in .chlog.yml",
	)
}

// GitNotRepository creates an error when not in a git repository.
func GitNotRepository() *CLIError {
	return &CLIError{
		Category: Collaborator,
		Message:  "not a git repository",
		Remediation: []string{
			"Initialize with: git init",
			"Or navigate to an existing repository",
		},
	}
}

// FileNotWritable creates an error when a file cannot be written.
func FileNotWritable(path string, err error) *CLIError {
	return WrapWithMessage(err, Runtime,
		fmt.Sprintf("cannot write to file: %s", path),
		"Check file permissions: ls -la "+path,
		"Ensure parent directory exists and is writable",
	)
}
