// Package marc holds the in-memory bibliographic record model used by the
// converter, plus a reader and writer for ISO 2709 (binary MARC) streams.
package marc

import (
	"fmt"
	"strconv"
)

// Subfield is a single coded value inside a data field.
type Subfield struct {
	Code  string `json:"code"`
	Value string `json:"value"`
}

// Field is one entry of a record's ordered field list. Control fields
// (tag < 010) carry Value; data fields carry indicators and subfields.
type Field struct {
	Tag       string     `json:"tag"`
	Value     string     `json:"value,omitempty"`
	Ind1      string     `json:"ind1,omitempty"`
	Ind2      string     `json:"ind2,omitempty"`
	Subfields []Subfield `json:"subfields,omitempty"`
}

// Record is a bibliographic record: a leader and an ordered, repeatable
// list of tagged fields.
type Record struct {
	Leader string  `json:"leader"`
	Fields []Field `json:"fields"`
}

// NewControlField builds a control field.
func NewControlField(tag, value string) Field {
	return Field{Tag: tag, Value: value}
}

// NewDataField builds a data field from alternating code/value pairs.
func NewDataField(tag, ind1, ind2 string, codeValues ...string) Field {
	f := Field{Tag: tag, Ind1: ind1, Ind2: ind2}
	for i := 0; i+1 < len(codeValues); i += 2 {
		f.Subfields = append(f.Subfields, Subfield{Code: codeValues[i], Value: codeValues[i+1]})
	}
	return f
}

// TagNumber parses a field tag as an integer.
func TagNumber(tag string) (int, error) {
	n, err := strconv.Atoi(tag)
	if err != nil {
		return 0, fmt.Errorf("invalid tag %q: %w", tag, err)
	}
	return n, nil
}

// IsControl reports whether the field is a control field (tag below 010).
func (f Field) IsControl() bool {
	n, err := TagNumber(f.Tag)
	return err == nil && n < 10
}

// Decoded returns the field's subfields as a code-keyed map.
func (f Field) Decoded() SubfieldMap {
	return DecodeSubfields(f.Subfields)
}

// Select returns every field whose tag is one of tags, in record order.
func (r *Record) Select(tags ...string) []Field {
	var fields []Field
	for _, f := range r.Fields {
		for _, t := range tags {
			if f.Tag == t {
				fields = append(fields, f)
				break
			}
		}
	}
	return fields
}

// ControlValue returns the value of the first control field with tag.
func (r *Record) ControlValue(tag string) (string, bool) {
	for _, f := range r.Fields {
		if f.Tag == tag {
			return f.Value, true
		}
	}
	return "", false
}

// Append adds fields to the end of the record.
func (r *Record) Append(fields ...Field) {
	r.Fields = append(r.Fields, fields...)
}
