package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tells which variant a Value holds.
type Kind int

const (
	// KindAbsent means the selector matched nothing.
	KindAbsent Kind = iota

	// KindText means the selector matched exactly one element.
	KindText

	// KindList means the selector matched more than one element.
	KindList
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindText:
		return "text"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is the result of one selector query against one page.
//
// Design decision: We model the three outcomes as a tagged value rather than
// using nil, string and []string in an interface{} because:
//  1. Callers must handle the absence marker explicitly
//  2. Serialization rules live in one place
//  3. An empty string match stays distinguishable from "no match"
//
// The zero Value is the absence marker.
type Value struct {
	kind  Kind
	text  string
	items []string
}

// Absent returns the absence marker.
func Absent() Value {
	return Value{kind: KindAbsent}
}

// Text returns a single-match value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// List returns a multi-match value. Items are copied.
func List(items ...string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: KindList, items: cp}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsAbsent reports whether v is the absence marker.
func (v Value) IsAbsent() bool {
	return v.kind == KindAbsent
}

// Text returns the single match text. It is empty for other kinds.
func (v Value) Text() string {
	return v.text
}

// Items returns a copy of the matches for a list value, a one-element slice
// for a text value, and nil for the absence marker.
func (v Value) Items() []string {
	switch v.kind {
	case KindText:
		return []string{v.text}
	case KindList:
		cp := make([]string, len(v.items))
		copy(cp, v.items)
		return cp
	default:
		return nil
	}
}

// Len returns the number of matches represented by v.
func (v Value) Len() int {
	switch v.kind {
	case KindText:
		return 1
	case KindList:
		return len(v.items)
	default:
		return 0
	}
}

// Join flattens v into a single cell: "" for absent, the text for a single
// match, and the items joined with sep for a list.
func (v Value) Join(sep string) string {
	switch v.kind {
	case KindText:
		return v.text
	case KindList:
		return strings.Join(v.items, sep)
	default:
		return ""
	}
}

// Equal reports whether two values hold the same kind and content.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind || v.text != other.text || len(v.items) != len(other.items) {
		return false
	}
	for i := range v.items {
		if v.items[i] != other.items[i] {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer for logging.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindList:
		return fmt.Sprintf("%q", v.items)
	default:
		return "<absent>"
	}
}

// MarshalJSON encodes absent as null, text as a string and list as an array.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindList:
		return json.Marshal(v.items)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = Absent()
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = Text(s)
	case '[':
		var items []string
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*v = List(items...)
	default:
		return fmt.Errorf("invalid extracted value: %s", trimmed)
	}
	return nil
}
