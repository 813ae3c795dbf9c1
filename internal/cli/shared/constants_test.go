package shared

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ariel-frischer/chlog/internal/changelog"
	clierrors "github.com/ariel-frischer/chlog/internal/errors"
	"github.com/ariel-frischer/chlog/internal/runner"
	"github.com/ariel-frischer/chlog/internal/validate"
)

func TestExitCodeConstants(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		constant int
		want     int
	}{
		"ExitSuccess":           {constant: ExitSuccess, want: 0},
		"ExitValidationFailed":  {constant: ExitValidationFailed, want: 1},
		"ExitInvalidArguments":  {constant: ExitInvalidArguments, want: 3},
		"ExitMissingDependency": {constant: ExitMissingDependency, want: 4},
		"ExitTimeout":           {constant: ExitTimeout, want: 5},
		"ExitMalformedDocument": {constant: ExitMalformedDocument, want: 6},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.constant)
		})
	}
}

func TestExitError_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "exit code 3", NewExitError(3).Error())
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	_, parseErr := changelog.Parse("# Changelog\n\n## [1.0.0] - not-a-date\n")

	tests := map[string]struct {
		err  error
		want int
	}{
		"nil error":          {err: nil, want: ExitSuccess},
		"exit error":         {err: NewExitError(ExitTimeout), want: ExitTimeout},
		"wrapped exit error": {err: fmt.Errorf("update: %w", NewExitError(ExitInvalidArguments)), want: ExitInvalidArguments},
		"timeout":            {err: &runner.TimeoutError{Command: "git log", Timeout: time.Second}, want: ExitTimeout},
		"malformed document": {err: parseErr, want: ExitMalformedDocument},
		"validation failed":  {err: &validate.FailedError{}, want: ExitValidationFailed},
		"collaborator":       {err: clierrors.NewCollaboratorError("git", "listing tags", errors.New("boom")), want: ExitMissingDependency},
		"argument error":     {err: clierrors.NewArgumentError("bad flag"), want: ExitInvalidArguments},
		"config error":       {err: clierrors.NewConfigError("bad key"), want: ExitInvalidArguments},
		"document error":     {err: clierrors.ChangelogNotFound("CHANGELOG.md"), want: ExitMalformedDocument},
		"generic error":      {err: errors.New("generic error"), want: ExitValidationFailed},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ExitCode(tc.err))
		})
	}
}

func TestExitCodeUniqueness(t *testing.T) {
	t.Parallel()

	codes := []int{
		ExitSuccess,
		ExitValidationFailed,
		ExitInvalidArguments,
		ExitMissingDependency,
		ExitTimeout,
		ExitMalformedDocument,
	}
	seen := make(map[int]bool)
	for _, c := range codes {
		assert.False(t, seen[c], "duplicate exit code %d", c)
		seen[c] = true
	}
}
