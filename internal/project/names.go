package project

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"aotc/internal/partition"
)

// NormalizeName trims surrounding space and converts a name to NFC so that
// visually identical names compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func normalizeAll(names []string) []string {
	if names == nil {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = NormalizeName(n)
	}
	return out
}

// IsValidModuleName reports whether name is a dotted sequence of identifiers
// ("System.Private.CoreLib") that does not collide with the compiler
// generated module.
func IsValidModuleName(name string) bool {
	if name == "" || name == partition.GeneratedModuleName {
		return false
	}
	for _, seg := range strings.Split(name, ".") {
		if !isIdent(seg) {
			return false
		}
	}
	return true
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && r != '_' && !unicode.IsLetter(r) {
			return false
		}
		if i > 0 && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
