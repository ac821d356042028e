package model

import (
	"bytes"
	"encoding/json"
)

// URLField is the column name reserved for the page address in every record.
const URLField = "url"

// Field is one named extracted value.
type Field struct {
	// Name is the selector's field name.
	Name string `json:"name"`

	// Value is what the selector produced on the page.
	Value Value `json:"value"`
}

// Record is the data extracted from one successfully fetched page.
//
// Design decision: We store fields as an ordered slice instead of a map
// because the first record's field order defines the column header of the
// output, and Go maps do not preserve insertion order.
type Record struct {
	// URL is the page the record was extracted from.
	URL string

	// Fields holds one entry per selector, in selector order.
	Fields []Field
}

// NewRecord creates a record for pageURL with the given fields.
func NewRecord(pageURL string, fields []Field) Record {
	return Record{URL: pageURL, Fields: fields}
}

// Columns returns the record's field names followed by URLField.
func (r Record) Columns() []string {
	cols := make([]string, 0, len(r.Fields)+1)
	for _, f := range r.Fields {
		cols = append(cols, f.Name)
	}
	return append(cols, URLField)
}

// Get returns the value stored under name. The URLField name returns the
// page URL as a text value.
func (r Record) Get(name string) (Value, bool) {
	if name == URLField {
		return Text(r.URL), true
	}
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Absent(), false
}

// MarshalJSON writes the record as a flat JSON object whose keys follow
// Columns() order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, f := range r.Fields {
		if err := writeJSONMember(&buf, f.Name, f.Value); err != nil {
			return nil, err
		}
		buf.WriteByte(',')
	}
	if err := writeJSONMember(&buf, URLField, r.URL); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONMember(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}
