package changelog

import "strings"

// Category is a Keep a Changelog change type. The zero value is not a valid
// category. Values are ordered: the numeric order is the rendering order.
type Category int

const (
	Added Category = iota + 1
	Changed
	Deprecated
	Removed
	Fixed
	Security
	// Uncategorized holds entries that still need manual triage. It is only
	// acceptable in the Unreleased section.
	Uncategorized
)

var categoryNames = [...]string{
	Added:         "Added",
	Changed:       "Changed",
	Deprecated:    "Deprecated",
	Removed:       "Removed",
	Fixed:         "Fixed",
	Security:      "Security",
	Uncategorized: "Uncategorized",
}

// String returns the heading name of the category.
func (c Category) String() string {
	if !c.Valid() {
		return "Invalid"
	}
	return categoryNames[c]
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	return c >= Added && c <= Uncategorized
}

// ParseCategory resolves a heading name such as "Fixed". Matching ignores
// case and surrounding whitespace.
func ParseCategory(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	for c := Added; c <= Uncategorized; c++ {
		if strings.EqualFold(categoryNames[c], name) {
			return c, true
		}
	}
	return 0, false
}

// Categories returns every category in canonical rendering order.
func Categories() []Category {
	return []Category{Added, Changed, Deprecated, Removed, Fixed, Security, Uncategorized}
}
