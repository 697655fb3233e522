package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	gyaml "github.com/goccy/go-yaml"

	"github.com/mcncl/jsondelta/internal/errors"
	"github.com/mcncl/jsondelta/internal/highlight"
	"github.com/mcncl/jsondelta/internal/models"
)

// Supported output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const (
	colorNeutral = "\x1b[37m"
	colorAdded   = "\x1b[32m"
	colorRemoved = "\x1b[31m"
	colorChanged = "\x1b[34m"
	colorClose   = "\x1b[0m"
)

// Formatter writes difference records in one of the supported formats
type Formatter struct {
	format string
	color  bool
}

// NewFormatter creates a Formatter. color only affects the text format.
func NewFormatter(format string, color bool) (*Formatter, error) {
	switch format {
	case "":
		format = FormatText
	case FormatText, FormatJSON, FormatYAML:
	default:
		return nil, errors.NewOutputError(fmt.Sprintf("unknown output format %q", format), nil)
	}
	return &Formatter{format: format, color: color}, nil
}

// Format writes records to w.
func (f *Formatter) Format(w io.Writer, records []models.Record) error {
	var (
		buf bytes.Buffer
		err error
	)
	switch f.format {
	case FormatJSON:
		err = writeJSON(&buf, records)
	case FormatYAML:
		err = writeYAML(&buf, records)
	default:
		writeText(&buf, records, f.color)
	}
	if err != nil {
		return errors.NewOutputError("failed to encode records as "+f.format, err)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.NewOutputError("failed to write output", err)
	}
	return nil
}

// writeText prints one line per record:
//
//	- path: removed
//	+ path: added
//	~ path: before -> after
//
// with the changed part of before and after marked.
func writeText(w io.Writer, records []models.Record, color bool) {
	markers := highlight.Plain
	if color {
		markers = highlight.ANSI
	}
	paint := func(c, s string) string {
		if !color {
			return s
		}
		return c + s + colorClose
	}

	for _, r := range records {
		switch r.Kind() {
		case models.Added:
			fmt.Fprintln(w, paint(colorAdded, "+ "+r.Path+": "+r.B.String()))
		case models.Removed:
			fmt.Fprintln(w, paint(colorRemoved, "- "+r.Path+": "+r.A.String()))
		default:
			a, b := highlight.Mark(r.A.String(), r.B.String(), markers)
			fmt.Fprintf(w, "%s %s -> %s\n", paint(colorChanged, "~ "+r.Path+":"), a, b)
		}
	}
}

func writeJSON(w io.Writer, records []models.Record) error {
	if records == nil {
		records = []models.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeYAML(w io.Writer, records []models.Record) error {
	if len(records) == 0 {
		_, err := io.WriteString(w, "[]\n")
		return err
	}

	docs := make([]gyaml.MapSlice, len(records))
	for i, r := range records {
		item := gyaml.MapSlice{{Key: "path", Value: r.Path}}
		if r.A != nil {
			item = append(item, gyaml.MapItem{Key: "a", Value: yamlValue(r.A)})
		}
		if r.B != nil {
			item = append(item, gyaml.MapItem{Key: "b", Value: yamlValue(r.B)})
		}
		docs[i] = item
	}

	enc := gyaml.NewEncoder(w, gyaml.Indent(2))
	if err := enc.Encode(docs); err != nil {
		return err
	}
	return enc.Close()
}

// yamlValue converts v to values goccy/go-yaml encodes in document order.
func yamlValue(v *models.Value) interface{} {
	switch v.Kind() {
	case models.Bool:
		return v.AsBool()
	case models.Number:
		lit := v.AsNumber().String()
		if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(lit, 64); err == nil {
			return f
		}
		return lit
	case models.String:
		return v.AsString()
	case models.Array:
		items := make([]interface{}, 0, v.Len())
		for _, item := range v.Items() {
			items = append(items, yamlValue(item))
		}
		return items
	case models.Object:
		out := gyaml.MapSlice{}
		for _, k := range v.Keys() {
			field, _ := v.Get(k)
			out = append(out, gyaml.MapItem{Key: k, Value: yamlValue(field)})
		}
		return out
	default:
		return nil
	}
}

// FormatStats summarizes stats on one line, for example
// "+1 element. 2 added. 1 removed. 1 changed."
func FormatStats(s models.Stats, color bool) string {
	var neutral, added, removed, changed, end string
	if color {
		neutral, added, removed, changed, end = colorNeutral, colorAdded, colorRemoved, colorChanged, colorClose
	}

	change := s.Right - s.Left
	elsColor, sign := added, "+"
	if change < 0 {
		elsColor, sign = removed, ""
	} else if change == 0 {
		elsColor, sign = neutral, ""
	}
	elementsWord := "elements"
	if change == 1 || change == -1 {
		elementsWord = "element"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s%s%d %s%s%s%s.", elsColor, sign, change, end, neutral, elementsWord, end)
	fmt.Fprintf(&buf, " %s%d added.%s", added, s.Added, end)
	fmt.Fprintf(&buf, " %s%d removed.%s", removed, s.Removed, end)
	fmt.Fprintf(&buf, " %s%d changed.%s", changed, s.Changed, end)
	return buf.String()
}
