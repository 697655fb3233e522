package recordset

import (
	"strings"

	"github.com/mcncl/jsondelta/internal/models"
)

// Crumb is one step of a breadcrumb trail.
type Crumb struct {
	Label string
	Path  string
}

// View tracks which path a reader has drilled into. The zero value is at the
// root.
type View struct {
	path string
}

// Path returns the current path, "" at the root.
func (v *View) Path() string {
	return v.path
}

// Navigate moves to path when at least one record lies at or below it and
// reports whether it moved. The empty path returns to the root.
func (v *View) Navigate(records []models.Record, path string) bool {
	if path == "" {
		v.path = ""
		return true
	}
	for _, r := range records {
		if Under(r.Path, path) {
			v.path = path
			return true
		}
	}
	return false
}

// Select acts on a field picked by the reader: picking the current path
// goes up, picking a path with records below it drills in, and picking a
// leaf leaves the view unchanged. It reports whether the view changed.
func (v *View) Select(records []models.Record, path string) bool {
	if path == "" {
		return false
	}
	if path == v.path {
		v.Up()
		return true
	}
	if HasChildren(records, path) {
		return v.Navigate(records, path)
	}
	return false
}

// Up moves to the parent of the current path.
func (v *View) Up() {
	v.path = Parent(v.path)
}

// Root moves to the root.
func (v *View) Root() {
	v.path = ""
}

// Breadcrumb returns the trail from the root to the current path. The first
// crumb is always the root.
func (v *View) Breadcrumb() []Crumb {
	crumbs := []Crumb{{Label: "root", Path: ""}}
	parts := Segments(v.path)
	for i, part := range parts {
		crumbs = append(crumbs, Crumb{Label: part, Path: strings.Join(parts[:i+1], ".")})
	}
	return crumbs
}

// Visible returns the records at or below the current path.
func (v *View) Visible(records []models.Record) []models.Record {
	return Filter(records, v.path)
}
