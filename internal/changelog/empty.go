package changelog

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultTitle is the title of newly created changelogs.
const DefaultTitle = "Changelog"

// DefaultPreamble is the description written below the title of newly
// created changelogs.
const DefaultPreamble = `All notable changes to this project will be documented in this file.

The format is based on [Keep a Changelog](https://keepachangelog.com/en/1.1.0/),
and this project adheres to [Semantic Versioning](https://semver.org/spec/v2.0.0.html).`

// Options configures NewDocument. TagPrefix is only checked for shape: an
// empty changelog links Unreleased to the repository itself.
type Options struct {
	RepoURL   string `validate:"required,url"`
	TagPrefix string
	Title     string
}

var optionsValidator = validator.New(validator.WithRequiredStructEnabled())

// NewDocument creates a minimal valid changelog: title, standard preamble, an
// empty Unreleased section and its reference link pointing at the repository.
func NewDocument(opts Options) (*Document, error) {
	if err := optionsValidator.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid changelog options: %w", err)
	}
	if strings.ContainsAny(opts.TagPrefix, " \t\r\n") {
		return nil, fmt.Errorf("invalid tag prefix %q: must not contain whitespace", opts.TagPrefix)
	}
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = DefaultTitle
	}
	return &Document{
		Title:        title,
		Preamble:     DefaultPreamble,
		Releases:     []Release{NewRelease(UnreleasedID, "")},
		Links:        []Link{{ID: UnreleasedID, URL: opts.RepoURL}},
		finalNewline: true,
	}, nil
}
