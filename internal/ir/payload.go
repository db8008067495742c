package ir

import (
	"bytes"
	"fmt"
	"strings"
)

// FieldState is the tri-state of one payload column.
type FieldState uint8

const (
	// Absent means the column was not supplied at all.
	Absent FieldState = iota
	// Nulled means the column was supplied as an explicit null.
	Nulled
	// Present means the column carries a non-null value.
	Present
)

func (s FieldState) String() string {
	switch s {
	case Absent:
		return "absent"
	case Nulled:
		return "null"
	default:
		return "value"
	}
}

// Field is one column of a payload with its tri-state.
type Field struct {
	State FieldState
	Value Value
}

// Payload maps column names to values. A missing key is Absent, Null{} is
// an explicit null, anything else is a value. The two are never collapsed
// when payloads are merged.
type Payload map[string]Value

// Field returns the tri-state view of col.
func (p Payload) Field(col string) Field {
	v, ok := p[col]
	switch {
	case !ok:
		return Field{State: Absent}
	case IsNull(v):
		return Field{State: Nulled, Value: Null{}}
	default:
		return Field{State: Present, Value: v}
	}
}

// Clone returns a shallow copy. Values are immutable so this is a full copy
// for all practical purposes.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Overlay writes every supplied column of src into p, explicit nulls
// included. Absent columns of src leave p untouched.
func (p Payload) Overlay(src Payload) {
	for k, v := range src {
		if v == nil {
			v = Null{}
		}
		p[k] = v
	}
}

// StripNulls returns a copy without explicit nulls.
func (p Payload) StripNulls() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		if !IsNull(v) {
			out[k] = v
		}
	}
	return out
}

// Split separates the columns named in cols from the rest.
func (p Payload) Split(cols map[string]bool) (rest, picked Payload) {
	rest = make(Payload, len(p))
	picked = make(Payload)
	for k, v := range p {
		if cols[k] {
			picked[k] = v
		} else {
			rest[k] = v
		}
	}
	return rest, picked
}

// Without returns a copy minus the named columns.
func (p Payload) Without(cols map[string]bool) Payload {
	rest, _ := p.Split(cols)
	return rest
}

// Canonical returns the canonical JSON encoding of p.
func (p Payload) Canonical() ([]byte, error) {
	return MarshalCanonical(p)
}

// MarshalJSON implements json.Marshaler with canonical key order.
func (p Payload) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(p)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var obj Object
	if err := obj.UnmarshalJSON(data); err != nil {
		return err
	}
	*p = Payload(obj)
	return nil
}

// EqualIgnoringNulls compares two payloads treating an explicit null like an
// absent column. Stored rows materialise every column, so a null there is
// indistinguishable from a column the merge never supplied.
func EqualIgnoringNulls(a, b Payload) bool {
	ca, err := MarshalCanonical(a.StripNulls())
	if err != nil {
		return false
	}
	cb, err := MarshalCanonical(b.StripNulls())
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

// Keys holds identity column values of one entity.
type Keys map[string]Value

// Complete reports whether every column in cols has a non-null value.
func (k Keys) Complete(cols []string) bool {
	if len(cols) == 0 {
		return false
	}
	for _, c := range cols {
		if IsNull(k[c]) {
			return false
		}
	}
	return true
}

// Project returns the subset of k named by cols.
func (k Keys) Project(cols []string) Keys {
	out := make(Keys, len(cols))
	for _, c := range cols {
		if v, ok := k[c]; ok {
			out[c] = v
		}
	}
	return out
}

// Render joins the values of cols with "__", in column order. Nulls render
// as an empty component.
func (k Keys) Render(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = renderKeyValue(k[c])
	}
	return strings.Join(parts, "__")
}

func renderKeyValue(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return ""
	case String:
		return string(val)
	case Int:
		return fmt.Sprintf("%d", int64(val))
	case Bool:
		return fmt.Sprintf("%t", bool(val))
	case Decimal:
		return val.Text()
	default:
		b, err := MarshalCanonical(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// MarshalJSON implements json.Marshaler with canonical key order.
func (k Keys) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(k)
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *Keys) UnmarshalJSON(data []byte) error {
	var obj Object
	if err := obj.UnmarshalJSON(data); err != nil {
		return err
	}
	*k = Keys(obj)
	return nil
}

// Lookup reads column col from the identity keys first, then the payload.
func Lookup(keys Keys, data Payload, col string) Value {
	if v, ok := keys[col]; ok && !IsNull(v) {
		return v
	}
	return data[col]
}
