// Package resolver maps document paths to the field used to align array
// elements at that path.
package resolver

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcncl/jsondelta/internal/errors"
)

// Resolver returns the alignment key for the array found at path.
type Resolver interface {
	Resolve(path string) (key string, ok bool)
}

// Entry binds a path prefix to a key field name.
type Entry struct {
	Prefix string `yaml:"path" json:"path"`
	Key    string `yaml:"key" json:"key"`
}

// Table is an ordered list of prefix to key entries. The zero value is an
// empty table that resolves nothing.
type Table struct {
	entries []Entry
}

// NewTable builds a table from entries in order, as if by repeated Set.
func NewTable(entries ...Entry) *Table {
	t := &Table{}
	for _, e := range entries {
		t.Set(e.Prefix, e.Key)
	}
	return t
}

// Set binds prefix to key. Re-binding an existing prefix replaces its key and
// keeps its position.
func (t *Table) Set(prefix, key string) {
	for i := range t.entries {
		if t.entries[i].Prefix == prefix {
			t.entries[i].Key = key
			return
		}
	}
	t.entries = append(t.entries, Entry{Prefix: prefix, Key: key})
}

// Entries returns a copy of the table in registration order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Clone returns an independent copy of t.
func (t *Table) Clone() *Table {
	return &Table{entries: t.Entries()}
}

// Resolve returns the key of the most specific entry covering path. An entry
// covers path when path equals its prefix or continues it with a "."
// separated field. Specificity is the number of "." separated segments in
// the prefix; among equally specific entries the last registered wins.
func (t *Table) Resolve(path string) (string, bool) {
	e, ok := t.Lookup(path)
	return e.Key, ok
}

// Lookup is Resolve returning the whole matching entry.
func (t *Table) Lookup(path string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	var (
		best  Entry
		depth = -1
	)
	for _, e := range t.entries {
		if path != e.Prefix && !strings.HasPrefix(path, e.Prefix+".") {
			continue
		}
		if d := strings.Count(e.Prefix, ".") + 1; d >= depth {
			best, depth = e, d
		}
	}
	return best, depth >= 0
}

// String renders the table in the "path:key, path:key" form read by
// ParsePairs.
func (t *Table) String() string {
	if t == nil {
		return ""
	}
	parts := make([]string, len(t.entries))
	for i, e := range t.entries {
		parts[i] = e.Prefix + ":" + e.Key
	}
	return strings.Join(parts, ", ")
}

// ParsePairs reads a comma separated list of "path:key" pairs. Blank and
// malformed pairs are skipped.
func ParsePairs(s string) *Table {
	t := &Table{}
	for _, pair := range strings.Split(s, ",") {
		prefix, key, ok := splitPair(pair)
		if ok {
			t.Set(prefix, key)
		}
	}
	return t
}

// ParsePairsStrict is ParsePairs for user supplied configuration: a
// malformed pair is an error wrapping errors.ErrInvalidPair. Blank input and
// empty items between commas are still allowed.
func ParsePairsStrict(s string) (*Table, error) {
	t := &Table{}
	for _, pair := range strings.Split(s, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		prefix, key, ok := splitPair(pair)
		if !ok {
			return nil, errors.NewConfigError(
				fmt.Sprintf("unique key %q is not a path:key pair", strings.TrimSpace(pair)),
				errors.ErrInvalidPair,
			)
		}
		t.Set(prefix, key)
	}
	return t, nil
}

// splitPair splits on the last ":" so that keyed path segments such as
// "items[id=a:b]" survive as prefixes.
func splitPair(pair string) (string, string, bool) {
	i := strings.LastIndex(pair, ":")
	if i < 0 {
		return "", "", false
	}
	prefix := strings.TrimSpace(pair[:i])
	key := strings.TrimSpace(pair[i+1:])
	if prefix == "" || key == "" {
		return "", "", false
	}
	return prefix, key, true
}

// MarshalText implements encoding.TextMarshaler.
func (t *Table) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParsePairsStrict.
// It lets the table be read from TOML strings and environment variables.
func (t *Table) UnmarshalText(text []byte) error {
	parsed, err := ParsePairsStrict(string(text))
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

// UnmarshalYAML accepts a mapping of path to key, a sequence whose items are
// either {path, key} mappings or "path:key" strings, or a single pairs
// string.
func (t *Table) UnmarshalYAML(node *yaml.Node) error {
	out := &Table{}
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			var prefix, key string
			if err := node.Content[i].Decode(&prefix); err != nil {
				return err
			}
			if err := node.Content[i+1].Decode(&key); err != nil {
				return err
			}
			out.Set(prefix, key)
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind == yaml.ScalarNode {
				parsed, err := ParsePairsStrict(item.Value)
				if err != nil {
					return err
				}
				for _, e := range parsed.entries {
					out.Set(e.Prefix, e.Key)
				}
				continue
			}
			var e Entry
			if err := item.Decode(&e); err != nil {
				return err
			}
			if e.Prefix == "" || e.Key == "" {
				return errors.NewConfigError(
					fmt.Sprintf("unique key entry at line %d needs both path and key", item.Line),
					errors.ErrInvalidPair,
				)
			}
			out.Set(e.Prefix, e.Key)
		}
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			parsed, err := ParsePairsStrict(node.Value)
			if err != nil {
				return err
			}
			out = parsed
		}
	default:
		return fmt.Errorf("unique_keys: unsupported YAML node at line %d", node.Line)
	}
	*t = *out
	return nil
}

// MarshalYAML writes the table as a path to key mapping.
func (t *Table) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range t.Entries() {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Prefix},
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Key},
		)
	}
	return node, nil
}
