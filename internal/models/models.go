package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Kind identifies which JSON type a Value holds.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a decoded JSON node. Objects remember the order their fields were
// set in; numbers keep their literal text. The zero Value is null.
type Value struct {
	kind   Kind
	b      bool
	num    json.Number
	str    string
	items  []*Value
	keys   []string
	fields map[string]*Value
}

// NewNull returns a JSON null.
func NewNull() *Value { return &Value{kind: Null} }

// NewBool returns a JSON boolean.
func NewBool(b bool) *Value { return &Value{kind: Bool, b: b} }

// NewNumber returns a JSON number holding the given literal.
func NewNumber(n json.Number) *Value { return &Value{kind: Number, num: n} }

// NewString returns a JSON string.
func NewString(s string) *Value { return &Value{kind: String, str: s} }

// NewArray returns a JSON array holding items in order.
func NewArray(items ...*Value) *Value {
	if items == nil {
		items = []*Value{}
	}
	return &Value{kind: Array, items: items}
}

// NewObject returns an empty JSON object.
func NewObject() *Value {
	return &Value{kind: Object, fields: map[string]*Value{}}
}

// Kind reports the JSON type of v. A nil Value reports Null.
func (v *Value) Kind() Kind {
	if v == nil {
		return Null
	}
	return v.kind
}

// IsContainer reports whether v is an array or an object.
func (v *Value) IsContainer() bool {
	k := v.Kind()
	return k == Array || k == Object
}

func (v *Value) AsBool() bool          { return v.b }
func (v *Value) AsNumber() json.Number { return v.num }
func (v *Value) AsString() string      { return v.str }

// Len returns the number of array items or object fields.
func (v *Value) Len() int {
	switch v.Kind() {
	case Array:
		return len(v.items)
	case Object:
		return len(v.keys)
	}
	return 0
}

// Items returns the elements of an array. The slice is shared with v.
func (v *Value) Items() []*Value { return v.items }

// Index returns the i'th array element, or nil when i is out of range.
func (v *Value) Index(i int) *Value {
	if v.Kind() != Array || i < 0 || i >= len(v.items) {
		return nil
	}
	return v.items[i]
}

// Append adds an element to the end of an array.
func (v *Value) Append(item *Value) {
	v.items = append(v.items, item)
}

// SetIndex replaces the i'th array element.
func (v *Value) SetIndex(i int, item *Value) {
	v.items[i] = item
}

// Keys returns object field names in insertion order. The slice is shared with v.
func (v *Value) Keys() []string { return v.keys }

// Get returns the named object field.
func (v *Value) Get(key string) (*Value, bool) {
	if v.Kind() != Object {
		return nil, false
	}
	f, ok := v.fields[key]
	return f, ok
}

// Set assigns an object field. A new key is appended to the field order, an
// existing key keeps its position.
func (v *Value) Set(key string, val *Value) {
	if _, ok := v.fields[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.fields[key] = val
}

// Delete removes an object field if present.
func (v *Value) Delete(key string) {
	if _, ok := v.fields[key]; !ok {
		return
	}
	delete(v.fields, key)
	for i, k := range v.keys {
		if k == key {
			v.keys = append(v.keys[:i:i], v.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy of v that shares nothing with it.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	c := &Value{kind: v.kind, b: v.b, num: v.num, str: v.str}
	switch v.kind {
	case Array:
		c.items = make([]*Value, len(v.items))
		for i, item := range v.items {
			c.items[i] = item.Clone()
		}
	case Object:
		c.keys = make([]string, len(v.keys))
		copy(c.keys, v.keys)
		c.fields = make(map[string]*Value, len(v.fields))
		for k, f := range v.fields {
			c.fields[k] = f.Clone()
		}
	}
	return c
}

// Equal reports whether a and b hold the same JSON value. Object field order
// is irrelevant and numbers compare by value. Two nil values are equal; a nil
// value never equals a present one, including a JSON null.
func Equal(a, b *Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Null:
		return true
	case Bool:
		return a.b == b.b
	case Number:
		return a.num == b.num || NormalizeNumber(a.num) == NormalizeNumber(b.num)
	case String:
		return a.str == b.str
	case Array:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(a.keys) != len(b.keys) {
			return false
		}
		for _, k := range a.keys {
			bf, ok := b.fields[k]
			if !ok || !Equal(a.fields[k], bf) {
				return false
			}
		}
		return true
	}
	return false
}

// NormalizeNumber rewrites a number literal so that literals denoting the
// same value share one spelling: integers that fit in an int64 print as
// integers, other values use the shortest float64 form. Literals that do not
// parse are returned unchanged.
func NormalizeNumber(n json.Number) json.Number {
	s := string(n)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return json.Number(strconv.FormatInt(i, 10))
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return n
	}
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		return json.Number(strconv.FormatFloat(f, 'e', -1, 64))
	}
	return json.Number(strconv.FormatFloat(f, 'f', -1, 64))
}

// CountNodes returns the number of values in the tree rooted at v.
func CountNodes(v *Value) int {
	if v == nil {
		return 0
	}
	n := 1
	switch v.kind {
	case Array:
		for _, item := range v.items {
			n += CountNodes(item)
		}
	case Object:
		for _, k := range v.keys {
			n += CountNodes(v.fields[k])
		}
	}
	return n
}

// MarshalJSON encodes v as compact JSON, objects in their current field order.
func (v *Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// String returns the compact JSON encoding of v.
func (v *Value) String() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return "<invalid>"
	}
	return string(data)
}

func (v *Value) encode(buf *bytes.Buffer) error {
	switch v.Kind() {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.b))
	case Number:
		if v.num == "" {
			buf.WriteByte('0')
		} else {
			buf.WriteString(string(v.num))
		}
	case String:
		return encodeString(buf, v.str)
	case Array:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := v.fields[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
