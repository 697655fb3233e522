// Package canon prepares parsed JSON trees for comparison: nested JSON held
// in strings is expanded, ignored fields are dropped and the result is
// brought into a canonical form in which equal documents are structurally
// identical.
package canon

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/mcncl/jsondelta/internal/models"
)

// Option configures Canonicalize.
type Option func(*options)

type options struct {
	nfc bool
}

// WithUnicodeNFC additionally normalizes every string to Unicode NFC, so
// precomposed and decomposed spellings of the same text compare equal.
func WithUnicodeNFC() Option {
	return func(o *options) {
		o.nfc = true
	}
}

// Canonicalize returns the canonical form of v: object fields sorted by
// name, strings with CRLF line endings folded to LF and surrounding white
// space trimmed, number literals normalized. Array order is kept.
// Canonicalize never fails and canonicalizing a canonical tree is a no-op.
func Canonicalize(v *models.Value, opts ...Option) *models.Value {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return canonicalize(v, &o)
}

func canonicalize(v *models.Value, o *options) *models.Value {
	if v == nil {
		return nil
	}
	switch v.Kind() {
	case models.Array:
		items := make([]*models.Value, len(v.Items()))
		for i, item := range v.Items() {
			items[i] = canonicalize(item, o)
		}
		return models.NewArray(items...)
	case models.Object:
		keys := slices.Clone(v.Keys())
		slices.Sort(keys)
		out := models.NewObject()
		for _, k := range keys {
			f, _ := v.Get(k)
			out.Set(k, canonicalize(f, o))
		}
		return out
	case models.String:
		return models.NewString(CanonicalString(v.AsString(), o.nfc))
	case models.Number:
		return models.NewNumber(models.NormalizeNumber(v.AsNumber()))
	case models.Bool:
		return models.NewBool(v.AsBool())
	}
	return models.NewNull()
}

// CanonicalString folds CRLF to LF and trims leading and trailing white
// space, including a byte order mark but not NEL (U+0085), the set
// ECMAScript's String.prototype.trim removes. With nfc set the result is
// also NFC normalized.
func CanonicalString(s string, nfc bool) string {
	// "\r\r\n" folds to "\r\n" on one pass; repeat so the result is stable.
	for strings.Contains(s, "\r\n") {
		s = strings.ReplaceAll(s, "\r\n", "\n")
	}
	s = strings.TrimFunc(s, isTrimmable)
	if nfc {
		s = norm.NFC.String(s)
	}
	return s
}

func isTrimmable(r rune) bool {
	if r == '\u0085' {
		return false
	}
	return unicode.IsSpace(r) || r == '\uFEFF'
}
