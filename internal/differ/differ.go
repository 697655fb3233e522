// Package differ compares two canonical JSON trees and reports leaf level
// differences as path addressed records.
package differ

import (
	"iter"
	"strconv"

	"github.com/mcncl/jsondelta/internal/canon"
	"github.com/mcncl/jsondelta/internal/models"
	"github.com/mcncl/jsondelta/internal/resolver"
)

// Option configures a Walker.
type Option func(*Walker)

// WithResolver aligns arrays by the key field r resolves for their path.
// Without a resolver every array is compared by position.
func WithResolver(r resolver.Resolver) Option {
	return func(w *Walker) {
		w.resolver = r
	}
}

// WithIgnore skips object fields with the given names.
func WithIgnore(keys ...string) Option {
	return func(w *Walker) {
		w.ignore = canon.NewKeySet(keys...)
	}
}

// WithRootPath sets the path reported for the roots of the two trees.
func WithRootPath(path string) Option {
	return func(w *Walker) {
		w.root = path
	}
}

// Walker produces the differences between two trees one record at a time,
// in depth-first pre-order. A Walker is single-use and not safe for
// concurrent use.
type Walker struct {
	resolver resolver.Resolver
	ignore   canon.KeySet
	root     string
	stack    []frame
}

// frame is a pending comparison. A nil side is absent.
type frame struct {
	path string
	a, b *models.Value
}

// New returns a Walker over a and b. Both trees are expected in canonical
// form and must not be modified while the Walker is in use.
func New(a, b *models.Value, opts ...Option) *Walker {
	w := &Walker{}
	for _, opt := range opts {
		opt(w)
	}
	w.stack = []frame{{path: w.root, a: a, b: b}}
	return w
}

// Diff returns every difference between a and b.
func Diff(a, b *models.Value, opts ...Option) []models.Record {
	records := []models.Record{}
	for r := range New(a, b, opts...).All() {
		records = append(records, r)
	}
	return records
}

// Next returns the next difference. It reports false once the trees are
// exhausted, and keeps doing so on later calls.
func (w *Walker) Next() (models.Record, bool) {
	for len(w.stack) > 0 {
		f := w.stack[len(w.stack)-1]
		w.stack[len(w.stack)-1] = frame{}
		w.stack = w.stack[:len(w.stack)-1]

		if models.Equal(f.a, f.b) {
			continue
		}
		if f.a != nil && f.b != nil {
			switch {
			case f.a.Kind() == models.Array && f.b.Kind() == models.Array:
				w.pushArray(f)
				continue
			case f.a.Kind() == models.Object && f.b.Kind() == models.Object:
				w.pushObject(f)
				continue
			}
		}
		return models.Record{Path: f.path, A: f.a, B: f.b}, true
	}
	w.stack = nil
	return models.Record{}, false
}

// All returns the remaining differences as a sequence. Breaking out of the
// loop leaves the rest for a later Next or All.
func (w *Walker) All() iter.Seq[models.Record] {
	return func(yield func(models.Record) bool) {
		for {
			r, ok := w.Next()
			if !ok || !yield(r) {
				return
			}
		}
	}
}

// push schedules children so that the first one is compared next.
func (w *Walker) push(children []frame) {
	for i := len(children) - 1; i >= 0; i-- {
		w.stack = append(w.stack, children[i])
	}
}

func (w *Walker) pushObject(f frame) {
	names := make([]string, 0, f.a.Len()+f.b.Len())
	for _, k := range f.a.Keys() {
		if !w.ignore.Has(k) {
			names = append(names, k)
		}
	}
	for _, k := range f.b.Keys() {
		if _, inA := f.a.Get(k); !inA && !w.ignore.Has(k) {
			names = append(names, k)
		}
	}

	children := make([]frame, len(names))
	for i, k := range names {
		a, _ := f.a.Get(k)
		b, _ := f.b.Get(k)
		children[i] = frame{path: FieldPath(f.path, k), a: a, b: b}
	}
	w.push(children)
}

func (w *Walker) pushArray(f frame) {
	if w.resolver != nil {
		if key, ok := w.resolver.Resolve(f.path); ok {
			w.pushKeyed(f, key)
			return
		}
	}

	n := max(f.a.Len(), f.b.Len())
	children := make([]frame, n)
	for i := range n {
		children[i] = frame{path: IndexPath(f.path, i), a: f.a.Index(i), b: f.b.Index(i)}
	}
	w.push(children)
}

// pushKeyed aligns elements by the value of their key field. Within one side
// a later element replaces an earlier one with the same key value but keeps
// the earlier element's position. Elements without the key share one slot.
func (w *Walker) pushKeyed(f frame, key string) {
	type slot struct {
		label string
		a, b  *models.Value
	}
	var (
		order []string
		slots = map[string]*slot{}
	)
	collect := func(items []*models.Value, sideA bool) {
		for _, item := range items {
			id, label := keyOf(item, key)
			s, ok := slots[id]
			if !ok {
				s = &slot{label: label}
				slots[id] = s
				order = append(order, id)
			}
			if sideA {
				s.a = item
			} else {
				s.b = item
			}
		}
	}
	collect(f.a.Items(), true)
	collect(f.b.Items(), false)

	children := make([]frame, len(order))
	for i, id := range order {
		s := slots[id]
		children[i] = frame{path: KeyedPath(f.path, key, s.label), a: s.a, b: s.b}
	}
	w.push(children)
}

// keyOf returns the identity of item's key value and its label for paths.
// Items that are not objects or lack the field share the identity "".
func keyOf(item *models.Value, key string) (id, label string) {
	if item.Kind() != models.Object {
		return "", ""
	}
	v, ok := item.Get(key)
	if !ok {
		return "", ""
	}
	return "=" + v.String(), KeyLabel(v)
}

// KeyLabel renders a key value for a keyed path segment: strings raw,
// everything else as compact JSON.
func KeyLabel(v *models.Value) string {
	if v.Kind() == models.String {
		return v.AsString()
	}
	return v.String()
}

// FieldPath extends path with an object field.
func FieldPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

// IndexPath extends path with a positional array index.
func IndexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// KeyedPath extends path with a keyed array element.
func KeyedPath(path, key, label string) string {
	return path + "[" + key + "=" + label + "]"
}
