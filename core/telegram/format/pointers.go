package format

import "strings"

// Deref returns *p, or def for a nil p.
func Deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// StringPtr returns a pointer to the trimmed s, or nil when s is blank.
// Optional text columns are stored as NULL rather than "".
func StringPtr(s string) *string {
	if s = strings.TrimSpace(s); s != "" {
		return &s
	}
	return nil
}
