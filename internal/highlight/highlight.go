// Package highlight locates the changed region between two leaf values for
// display. It trims the common prefix and suffix; it does not compute a
// minimal edit script.
package highlight

import (
	"github.com/mcncl/jsondelta/internal/models"
)

// Span splits a string into unchanged context around a changed middle.
type Span struct {
	Prefix  string
	Changed string
	Suffix  string
}

// String reassembles the original text.
func (s Span) String() string {
	return s.Prefix + s.Changed + s.Suffix
}

// Highlight returns the spans of a and b outside their longest common
// prefix and suffix. Both are measured in runes and never overlap, so the
// prefix and suffix together are at most as long as the shorter string.
func Highlight(a, b string) (Span, Span) {
	ra, rb := []rune(a), []rune(b)

	p := 0
	for p < len(ra) && p < len(rb) && ra[p] == rb[p] {
		p++
	}
	s := 0
	for s < len(ra)-p && s < len(rb)-p && ra[len(ra)-1-s] == rb[len(rb)-1-s] {
		s++
	}

	return split(ra, p, s), split(rb, p, s)
}

func split(r []rune, p, s int) Span {
	return Span{
		Prefix:  string(r[:p]),
		Changed: string(r[p : len(r)-s]),
		Suffix:  string(r[len(r)-s:]),
	}
}

// Markers wrap the changed regions of the two sides.
type Markers struct {
	OpenA, CloseA string
	OpenB, CloseB string
}

// Plain marks removed text as [-text-] and added text as {+text+}.
var Plain = Markers{OpenA: "[-", CloseA: "-]", OpenB: "{+", CloseB: "+}"}

// ANSI colors removed text red and added text green.
var ANSI = Markers{
	OpenA: "\x1b[31m", CloseA: "\x1b[0m",
	OpenB: "\x1b[32m", CloseB: "\x1b[0m",
}

// Mark returns a and b with their changed regions wrapped in m. An empty
// changed region is left unmarked.
func Mark(a, b string, m Markers) (string, string) {
	sa, sb := Highlight(a, b)
	return wrap(sa, m.OpenA, m.CloseA), wrap(sb, m.OpenB, m.CloseB)
}

func wrap(s Span, open, end string) string {
	if s.Changed == "" {
		return s.String()
	}
	return s.Prefix + open + s.Changed + end + s.Suffix
}

// LeafText renders a value for highlighting: strings raw, other values as
// compact JSON, and "" for an absent value.
func LeafText(v *models.Value) string {
	if v == nil {
		return ""
	}
	if v.Kind() == models.String {
		return v.AsString()
	}
	return v.String()
}
