package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCategory_String(t *testing.T) {
	tests := map[string]struct {
		category ErrorCategory
		want     string
	}{
		"argument":     {category: Argument, want: "Argument Error"},
		"document":     {category: Document, want: "Document Error"},
		"validation":   {category: Validation, want: "Validation Error"},
		"collaborator": {category: Collaborator, want: "Collaborator Error"},
		"unknown":      {category: ErrorCategory(99), want: "Error"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.category.String())
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, Runtime))
	assert.Nil(t, WrapWithMessage(nil, Runtime, "ctx"))

	cause := stderrors.New("boom")
	err := WrapWithMessage(cause, Document, "reading CHANGELOG.md", "retry")
	assert.Equal(t, "reading CHANGELOG.md: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, []string{"retry"}, err.Remediation)
}

func TestAsCLIError(t *testing.T) {
	inner := NewArgumentError("bad flag")
	wrapped := fmt.Errorf("running update: %w", inner)

	assert.Same(t, inner, AsCLIError(wrapped))
	assert.True(t, IsCLIError(wrapped))
	assert.Nil(t, AsCLIError(stderrors.New("plain")))
}

func TestCollaboratorError(t *testing.T) {
	assert.NoError(t, NewCollaboratorError("git", "listing tags", nil))

	cause := stderrors.New("exit status 128")
	err := NewCollaboratorError("git", "listing tags", cause)
	assert.EqualError(t, err, "git: listing tags: exit status 128")
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsCollaboratorError(fmt.Errorf("update: %w", err)))
	assert.False(t, IsCollaboratorError(cause))
}

func TestFormatErrorPlain(t *testing.T) {
	err := NewArgumentErrorWithUsage("missing version", "chlog init --version <v>", "Pass a semantic version")

	got := FormatErrorPlain(err)
	assert.Equal(t, "Error [Argument Error]: missing version\n"+
		"\nUsage: chlog init --version <v>\n"+
		"\nTo fix this:\n"+
		"  • Pass a semantic version\n", got)
	assert.Empty(t, FormatErrorPlain(nil))
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	Fprint(&buf, stderrors.New("disk full"), Runtime)
	require.NotEmpty(t, buf.String())
	assert.Contains(t, buf.String(), "disk full")
	assert.Contains(t, buf.String(), "Runtime Error")

	buf.Reset()
	Fprint(&buf, nil, Runtime)
	assert.Empty(t, buf.String())
}
