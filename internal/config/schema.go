package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ConfigValueType defines the expected type for a configuration value.
type ConfigValueType int

const (
	TypeBool ConfigValueType = iota
	TypeDuration
	TypeString
	TypeEnum
)

// String returns the string representation of ConfigValueType.
func (t ConfigValueType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeDuration:
		return "duration"
	case TypeString:
		return "string"
	case TypeEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// ConfigKeySchema defines a known configuration key with its expected type and validation rules.
type ConfigKeySchema struct {
	Path          string          // Dotted key path (e.g., "tag_rename.version")
	Type          ConfigValueType // Expected value type for validation
	AllowedValues []string        // Valid values for enum types (empty for non-enums)
	Description   string          // Human-readable description for help text
	Default       interface{}     // Default value
}

// KnownKeys is the registry of all known configuration keys with their schemas.
var KnownKeys = map[string]ConfigKeySchema{
	"changelog": {
		Path:        "changelog",
		Type:        TypeString,
		Description: "Changelog file, relative to the project root",
		Default:     DefaultChangelog,
	},
	"repo_url": {
		Path:        "repo_url",
		Type:        TypeString,
		Description: "Repository web URL used for links (empty = package.json or git origin)",
		Default:     "",
	},
	"tag_prefix": {
		Path:        "tag_prefix",
		Type:        TypeString,
		Description: "Prefix of release tags, e.g. v or pkg@",
		Default:     "v",
	},
	"tag_rename.version": {
		Path:        "tag_rename.version",
		Type:        TypeString,
		Description: "First version tagged with tag_prefix after a rename",
		Default:     "",
	},
	"tag_rename.old_prefix": {
		Path:        "tag_rename.old_prefix",
		Type:        TypeString,
		Description: "Tag prefix of versions below tag_rename.version",
		Default:     "",
	},
	"categorize": {
		Path:          "categorize",
		Type:          TypeEnum,
		AllowedValues: []string{"conventional", "off"},
		Description:   "Sort new entries by conventional-commit type, or leave them uncategorized",
		Default:       "conventional",
	},
	"entry_source": {
		Path:          "entry_source",
		Type:          TypeEnum,
		AllowedValues: []string{"subject", "explicit"},
		Description:   "Take entry text from commit subjects, or prefer explicit changelog text",
		Default:       "subject",
	},
	"require_pr_numbers": {
		Path:        "require_pr_numbers",
		Type:        TypeBool,
		Description: "Skip commits without a pull request number",
		Default:     false,
	},
	"short_links": {
		Path:        "short_links",
		Type:        TypeBool,
		Description: "Write (#N) instead of linked pull request references",
		Default:     false,
	},
	"require_pr_links": {
		Path:        "require_pr_links",
		Type:        TypeBool,
		Description: "Validation requires a pull request reference on every released entry",
		Default:     false,
	},
	"manifest": {
		Path:        "manifest",
		Type:        TypeString,
		Description: "Dependency manifest for bump checks (empty = package.json or go.mod)",
		Default:     "",
	},
	"git_backend": {
		Path:          "git_backend",
		Type:          TypeEnum,
		AllowedValues: []string{"native", "cli"},
		Description:   "History source: go-git (native) or the git binary (cli)",
		Default:       "native",
	},
	"command_timeout": {
		Path:        "command_timeout",
		Type:        TypeDuration,
		Description: "Timeout for external commands",
		Default:     "30s",
	},
	"github_token": {
		Path:        "github_token",
		Type:        TypeString,
		Description: "GitHub token for pull request lookups (default: $GITHUB_TOKEN)",
		Default:     "",
	},
	"fetch_pr_entries": {
		Path:        "fetch_pr_entries",
		Type:        TypeBool,
		Description: "Read changelog text from pull request descriptions",
		Default:     false,
	},
}

// SortedKeys returns the known key paths in alphabetical order.
func SortedKeys() []string {
	keys := make([]string, 0, len(KnownKeys))
	for k := range KnownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ErrUnknownKey is returned when trying to access an unknown configuration key.
type ErrUnknownKey struct {
	Key string
}

func (e ErrUnknownKey) Error() string {
	return "unknown configuration key: " + e.Key
}

// GetKeySchema returns the schema for a known configuration key.
// Returns ErrUnknownKey if the key is not in the registry.
func GetKeySchema(path string) (ConfigKeySchema, error) {
	schema, ok := KnownKeys[path]
	if !ok {
		return ConfigKeySchema{}, ErrUnknownKey{Key: path}
	}
	return schema, nil
}

// ParsedValue represents a configuration value after type inference and validation.
type ParsedValue struct {
	Raw    string      // Original string input from user
	Parsed interface{} // Value converted to correct type
	Type   ConfigValueType
}

// ValidateValue validates a value against the schema for a given key.
// Returns the parsed value or an error with details about what's wrong.
func ValidateValue(key, value string) (ParsedValue, error) {
	schema, err := GetKeySchema(key)
	if err != nil {
		return ParsedValue{}, err
	}
	return validateAgainstSchema(schema, value)
}

// validateAgainstSchema validates a value against a specific schema.
func validateAgainstSchema(schema ConfigKeySchema, value string) (ParsedValue, error) {
	switch schema.Type {
	case TypeBool:
		return parseBoolValue(value)
	case TypeDuration:
		return parseDurationValue(value)
	case TypeEnum:
		return parseEnumValue(schema, value)
	case TypeString:
		return ParsedValue{Raw: value, Parsed: value, Type: TypeString}, nil
	default:
		return ParsedValue{}, fmt.Errorf("unsupported type: %v", schema.Type)
	}
}

// parseBoolValue parses and validates a boolean value.
func parseBoolValue(value string) (ParsedValue, error) {
	switch strings.ToLower(value) {
	case "true":
		return ParsedValue{Raw: value, Parsed: true, Type: TypeBool}, nil
	case "false":
		return ParsedValue{Raw: value, Parsed: false, Type: TypeBool}, nil
	default:
		return ParsedValue{}, fmt.Errorf("invalid boolean: %q (expected true or false)", value)
	}
}

// parseDurationValue parses and validates a duration value.
func parseDurationValue(value string) (ParsedValue, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return ParsedValue{}, fmt.Errorf("invalid duration: %q (examples: 5m, 1h30m, 10s)", value)
	}
	return ParsedValue{Raw: value, Parsed: d.String(), Type: TypeDuration}, nil
}

// parseEnumValue validates a value against allowed enum options.
func parseEnumValue(schema ConfigKeySchema, value string) (ParsedValue, error) {
	for _, allowed := range schema.AllowedValues {
		if value == allowed {
			return ParsedValue{Raw: value, Parsed: value, Type: TypeEnum}, nil
		}
	}
	return ParsedValue{}, fmt.Errorf(
		"invalid value: %q (valid options: %s)",
		value,
		strings.Join(schema.AllowedValues, ", "),
	)
}
