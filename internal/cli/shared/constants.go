// Package shared provides constants and types used across CLI subpackages.
package shared

import (
	"errors"
	"fmt"

	"github.com/ariel-frischer/chlog/internal/changelog"
	clierrors "github.com/ariel-frischer/chlog/internal/errors"
	"github.com/ariel-frischer/chlog/internal/runner"
	"github.com/ariel-frischer/chlog/internal/validate"
)

// Exit codes for the chlog CLI.
// These codes support programmatic composition and CI/CD integration.
const (
	ExitSuccess           = 0
	ExitValidationFailed  = 1
	ExitInvalidArguments  = 3
	ExitMissingDependency = 4
	ExitTimeout           = 5
	ExitMalformedDocument = 6
)

// Command group IDs for help output.
const (
	GroupGettingStarted = "getting-started"
	GroupChangelog      = "changelog"
	GroupConfiguration  = "configuration"
)

// ExitError carries a process exit code through cobra's error return.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// NewExitError returns an error that makes the process exit with code.
func NewExitError(code int) error {
	return &ExitError{Code: code}
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case runner.IsTimeout(err):
		return ExitTimeout
	case changelog.IsMalformed(err):
		return ExitMalformedDocument
	case validate.IsFailed(err):
		return ExitValidationFailed
	case clierrors.IsCollaboratorError(err):
		return ExitMissingDependency
	}

	if cliErr := clierrors.AsCLIError(err); cliErr != nil {
		switch cliErr.Category {
		case clierrors.Argument, clierrors.Configuration:
			return ExitInvalidArguments
		case clierrors.Document:
			return ExitMalformedDocument
		case clierrors.Collaborator:
			return ExitMissingDependency
		}
	}
	return ExitValidationFailed
}
