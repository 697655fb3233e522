// Package recordset narrows a finished list of difference records by path,
// by unique key value and by keyword. Navigation state lives in a View held
// by the caller.
package recordset

import (
	"strings"

	"github.com/mcncl/jsondelta/internal/highlight"
	"github.com/mcncl/jsondelta/internal/models"
	"github.com/mcncl/jsondelta/internal/resolver"
)

// Under reports whether path is prefix itself or lies below it. The root
// prefix "" covers every path.
func Under(path, prefix string) bool {
	if prefix == "" || path == prefix {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	next := path[len(prefix)]
	return next == '.' || next == '['
}

// Filter returns the records at or below prefix, in their original order.
func Filter(records []models.Record, prefix string) []models.Record {
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if Under(r.Path, prefix) {
			out = append(out, r)
		}
	}
	return out
}

// HasChildren reports whether any record lies strictly below path.
func HasChildren(records []models.Record, path string) bool {
	for _, r := range records {
		if r.Path != path && Under(r.Path, path) {
			return true
		}
	}
	return false
}

// Segments splits a path into its "." separated fields. Dots inside a
// bracketed array segment do not split.
func Segments(path string) []string {
	if path == "" {
		return nil
	}
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '.':
			if depth == 0 {
				parts = append(parts, path[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, path[start:])
}

// Parent returns the path one field above path. Top level fields and the
// root have the root "" as parent.
func Parent(path string) string {
	parts := Segments(path)
	if len(parts) <= 1 {
		return ""
	}
	return strings.Join(parts[:len(parts)-1], ".")
}

// KeyScope returns the unique key entry that applies at path.
func KeyScope(table *resolver.Table, path string) (resolver.Entry, bool) {
	return table.Lookup(path)
}

// keyLabel returns the value of scope's key in the keyed segment that
// directly follows scope's prefix in path. Labels may themselves hold
// brackets, as array and object key values do, so the segment ends at the
// bracket that balances its opening one.
func keyLabel(path string, scope resolver.Entry) (string, bool) {
	if !Under(path, scope.Prefix) {
		return "", false
	}
	open := "[" + scope.Key + "="
	rest := path[len(scope.Prefix):]
	if !strings.HasPrefix(rest, open) {
		return "", false
	}
	rest = rest[len(open):]
	depth := 1
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return rest[:i], true
			}
		}
	}
	return "", false
}

// KeyValues lists the distinct values of scope's key in the keyed segments
// directly below scope's prefix, in first seen order. Elements without the
// key contribute the empty value.
func KeyValues(records []models.Record, scope resolver.Entry) []string {
	seen := map[string]bool{}
	var values []string
	for _, r := range records {
		label, ok := keyLabel(r.Path, scope)
		if !ok || seen[label] {
			continue
		}
		seen[label] = true
		values = append(values, label)
	}
	return values
}

// WithKeyValues keeps the records below scope's prefix whose keyed segment
// holds one of values. No values selects every record.
func WithKeyValues(records []models.Record, scope resolver.Entry, values []string) []models.Record {
	if len(values) == 0 {
		return records
	}
	wanted := make(map[string]bool, len(values))
	for _, v := range values {
		wanted[v] = true
	}

	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if label, ok := keyLabel(r.Path, scope); ok && wanted[label] {
			out = append(out, r)
		}
	}
	return out
}

// Search keeps the records whose path or either leaf value contains keyword,
// ignoring case. An empty keyword keeps everything.
func Search(records []models.Record, keyword string) []models.Record {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return records
	}
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Path), keyword) ||
			strings.Contains(strings.ToLower(highlight.LeafText(r.A)), keyword) ||
			strings.Contains(strings.ToLower(highlight.LeafText(r.B)), keyword) {
			out = append(out, r)
		}
	}
	return out
}
