// Package normalize trims and case-folds user input before it is stored or
// compared.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Email trims and lowercases an email address.
func Email(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Name composes a display name to NFC and collapses whitespace runs, so the
// same name typed on different keyboards compares equal.
func Name(s string) string { return strings.Join(strings.Fields(norm.NFC.String(s)), " ") }

// Provider trims and lowercases an identity provider name.
func Provider(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Status trims and lowercases a task status filter.
func Status(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
