package core

import (
	"strings"

	"golang.org/x/text/cases"
)

// NameKey is the comparison form of a user-facing name: trimmed and Unicode
// case folded, so "Épicerie" and "ÉPICERIE" share a key. Storage indexes
// categories, payers and budgets by it.
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// SameName reports whether a and b name the same thing.
func SameName(a, b string) bool {
	return NameKey(a) == NameKey(b)
}
