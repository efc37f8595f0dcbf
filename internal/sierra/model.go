package sierra

import (
	"fmt"
	"strconv"
	"time"
)

// Subfield is a subfield of a MARC-tagged varField.
type Subfield struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

// VarField is a variable-length field. MARC-tagged fields carry MarcTag,
// indicators and subfields; the rest carry only FieldTag and Content.
type VarField struct {
	FieldTag  string     `json:"fieldTag"`
	MarcTag   string     `json:"marcTag,omitempty"`
	Ind1      string     `json:"ind1,omitempty"`
	Ind2      string     `json:"ind2,omitempty"`
	Content   string     `json:"content,omitempty"`
	Subfields []Subfield `json:"subfields,omitempty"`
}

// FixedField is a coded fixed-length field. Value may be a string or a
// number depending on the field.
type FixedField struct {
	Label   string `json:"label"`
	Value   any    `json:"value"`
	Display string `json:"display,omitempty"`
}

// String returns the fixed field value as text.
func (f FixedField) String() string {
	switch v := f.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Code is a coded value such as an item location or status.
type Code struct {
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
	DueDate string `json:"duedate,omitempty"`
}

// Bib is a bibliographic record as returned by the catalog API.
type Bib struct {
	ID         string     `json:"id"`
	NyplSource string     `json:"nyplSource,omitempty"`
	Deleted    bool       `json:"deleted"`
	Suppressed bool       `json:"suppressed"`
	VarFields  []VarField `json:"varFields"`
}

// Item is an item record as returned by the catalog API.
type Item struct {
	ID          string                `json:"id"`
	NyplSource  string                `json:"nyplSource,omitempty"`
	BibIDs      []string              `json:"bibIds"`
	Barcode     string                `json:"barcode"`
	CallNumber  string                `json:"callNumber,omitempty"`
	Deleted     bool                  `json:"deleted"`
	Location    *Code                 `json:"location,omitempty"`
	Status      *Code                 `json:"status,omitempty"`
	FixedFields map[string]FixedField `json:"fixedFields,omitempty"`
	VarFields   []VarField            `json:"varFields,omitempty"`
}

// Fixed returns the text of a fixed field by number.
func (i Item) Fixed(number string) string {
	return i.FixedFields[number].String()
}

// VarContent returns the content of the first varField with fieldTag.
func (i Item) VarContent(fieldTag string) (string, bool) {
	for _, vf := range i.VarFields {
		if vf.FieldTag == fieldTag {
			return vf.Content, true
		}
	}
	return "", false
}

// StatusCode is the value exported as 876$j: the due date (MM/DD/YY) when
// the item is checked out, otherwise the status code.
func (i Item) StatusCode() string {
	if i.Status == nil {
		return ""
	}
	if i.Status.DueDate != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, i.Status.DueDate); err == nil {
				return t.Format("01/02/06")
			}
		}
		return i.Status.DueDate
	}
	return i.Status.Code
}

type response[T any] struct {
	Data       T   `json:"data"`
	Count      int `json:"count"`
	TotalCount int `json:"totalCount"`
}
