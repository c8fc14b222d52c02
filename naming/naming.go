// Package naming derives screenshot file names from task metadata or URLs.
package naming

import (
	"strings"
	"unicode"

	"github.com/use-agent/shotlist/models"
)

const (
	// Ext is appended to every synthesized name.
	Ext = ".png"

	// MaxBaseLen caps the name length, in characters, before Ext.
	MaxBaseLen = 180

	// Fallback is used when the metadata produces an empty name.
	Fallback = "untitled"
)

// reserved characters are not allowed in file names on common filesystems.
const reserved = `/\:*?"<>|`

func isReserved(r rune) bool {
	return strings.ContainsRune(reserved, r)
}

// Sanitize trims s, replaces reserved characters with '_' and collapses
// whitespace runs to a single space.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		switch {
		case isReserved(r):
			b.WriteByte('_')
			inSpace = false
		case unicode.IsSpace(r):
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
		default:
			b.WriteRune(r)
			inSpace = false
		}
	}
	return b.String()
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// truncate keeps at most n characters of s.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// FromMetadata builds "<contract>-<company>.png". The contract number loses
// all whitespace; the company keeps single spaces. Either part may be empty.
func FromMetadata(contract, company string) string {
	parts := make([]string, 0, 2)
	if c := stripSpace(Sanitize(contract)); c != "" {
		parts = append(parts, c)
	}
	if c := Sanitize(company); c != "" {
		parts = append(parts, c)
	}
	base := strings.Join(parts, "-")
	if base == "" {
		base = Fallback
	}
	return truncate(base, MaxBaseLen) + Ext
}

// FromURL builds a name from the URL without scheme, query or fragment.
// Every character outside [A-Za-z0-9._-] becomes '_', so the result is ASCII.
func FromURL(u string) string {
	switch {
	case strings.HasPrefix(u, "http://"):
		u = u[len("http://"):]
	case strings.HasPrefix(u, "https://"):
		u = u[len("https://"):]
	}
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}

	var b strings.Builder
	b.Grow(len(u))
	for _, r := range u {
		if isSafe(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return truncate(b.String(), MaxBaseLen) + Ext
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}

// ForTask names the screenshot for t: from metadata when the task has a
// contract or company, from its URL otherwise.
func ForTask(t models.CaptureTask) string {
	if t.Contract != "" || t.Company != "" {
		return FromMetadata(t.Contract, t.Company)
	}
	return FromURL(t.URL)
}
