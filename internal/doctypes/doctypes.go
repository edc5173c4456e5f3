// Package doctypes normalizes the free-text document-type tags of registry
// entries.
package doctypes

import (
	"slices"
	"strings"
)

// Separator delimits tags inside one registry value and in the catalog.
const Separator = ";"

// Corrections maps known misspellings published by authorities to the
// canonical tag. Add new entries here; the crawler picks them up as is.
var Corrections = map[string]string{
	"sustainability-apprasial": "sustainability-appraisal",
}

// Normalize splits, trims and corrects raw tag values and returns the unique
// tags in sorted order. It returns nil when no tags remain.
func Normalize(raw []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, value := range raw {
		for _, part := range strings.Split(value, Separator) {
			tag := strings.TrimSpace(part)
			if tag == "" {
				continue
			}
			if fixed, ok := Corrections[tag]; ok {
				tag = fixed
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	slices.Sort(out)
	return out
}

// Join renders tags for the catalog file.
func Join(tags []string) string {
	return strings.Join(tags, Separator)
}

// Split parses a catalog doc_types cell.
func Split(cell string) []string {
	return Normalize([]string{cell})
}
