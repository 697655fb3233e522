package models

// ChangeKind classifies a Record.
type ChangeKind string

const (
	Added   ChangeKind = "added"
	Removed ChangeKind = "removed"
	Changed ChangeKind = "changed"
)

// Record is a single leaf-level difference. A nil side means the value is
// absent there.
type Record struct {
	Path string `json:"path"`
	A    *Value `json:"a,omitempty"`
	B    *Value `json:"b,omitempty"`
}

// Kind reports whether the record adds, removes or changes a value.
func (r Record) Kind() ChangeKind {
	switch {
	case r.A == nil:
		return Added
	case r.B == nil:
		return Removed
	default:
		return Changed
	}
}

// Stats summarizes a comparison.
type Stats struct {
	Left    int `json:"left"`
	Right   int `json:"right"`
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Changed int `json:"changed"`
}

// Records returns the total number of records counted.
func (s Stats) Records() int {
	return s.Added + s.Removed + s.Changed
}

// NewStats counts records by kind. left and right are the compared trees and
// may be nil.
func NewStats(records []Record, left, right *Value) Stats {
	s := Stats{Left: CountNodes(left), Right: CountNodes(right)}
	for _, r := range records {
		switch r.Kind() {
		case Added:
			s.Added++
		case Removed:
			s.Removed++
		default:
			s.Changed++
		}
	}
	return s
}
