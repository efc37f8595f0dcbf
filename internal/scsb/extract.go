// Package scsb converts bibliographic records into the bib/holding/item tree
// exported to the ReCAP shared collection (SCSB), classifying every item's
// use restriction and collection group designation on the way.
package scsb

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/nypl/scsbxml/internal/marc"
)

// Tags of the institution's export contract.
const (
	TagControlNumber  = "001"
	TagControlSource  = "003"
	TagOCLC           = "035"
	TagLocation       = "852"
	TagHoldings       = "866"
	TagCirculation    = "876"
	TagGroup          = "900"
	TagBibID          = "907"
	TagBibCallNumber  = "952"
	TagOCLCCrossRef   = "991"
	oclcControlSource = "OCoLC"
)

// ErrMalformedRecord signals a record that does not have the shape the
// converter requires. It is a caller bug, not a data-quality problem.
var ErrMalformedRecord = errors.New("malformed record")

var oclcPattern = regexp.MustCompile(`\(OCoLC\)([0-9]+)`)

// ItemFields holds every decoded location and circulation field of a record.
type ItemFields struct {
	Location    []marc.SubfieldMap
	Circulation []marc.SubfieldMap
}

// Source is the per-record view the assemblers work from. It is built once
// by Extract and never modified afterwards.
type Source struct {
	Leader        string
	BibID         string
	OCLCNumber    string
	CallNumbers   []string
	ControlFields []marc.Field
	DataFields    []marc.Field
	Items         ItemFields
	Holdings      []marc.SubfieldMap

	// Overrides maps a check-digited item id to its catalog annotation,
	// the source of the committed override. Nil for MARC file input.
	Overrides map[string]string
}

// Extract pulls out everything the assemblers need. Fields whose tag is not
// numeric, such as local "CAT" fields, are neither control nor data fields
// and are left out.
func Extract(rec *marc.Record, reporter Reporter) (*Source, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record", ErrMalformedRecord)
	}
	for i, f := range rec.Fields {
		if _, err := marc.TagNumber(f.Tag); err != nil {
			slog.Debug("Skipping field with non-numeric tag", "index", i, "tag", f.Tag)
		}
	}
	if reporter == nil {
		reporter = NopReporter{}
	}

	src := &Source{Leader: rec.Leader}
	src.BibID, _ = ExtractBibID(rec)
	src.OCLCNumber, _ = ExtractOCLCNumber(rec)
	src.CallNumbers = ExtractBibCallNumbers(rec)
	src.ControlFields = ExtractControlFields(rec)
	src.DataFields = ExtractDataFields(rec, src.OCLCNumber, reporter)
	src.Items = ExtractItemFields(rec)
	src.Holdings = ExtractHoldingFields(rec)
	return src, nil
}

// ExtractControlFields returns the fields tagged below 010, in record order.
func ExtractControlFields(rec *marc.Record) []marc.Field {
	var fields []marc.Field
	for _, f := range rec.Fields {
		if n, err := marc.TagNumber(f.Tag); err == nil && n < 10 {
			fields = append(fields, f)
		}
	}
	return fields
}

// ExtractDataFields returns the bibliographic data fields: everything tagged
// above 009 except the item and holding carriers and any existing OCLC
// identifiers. When oclc is set, a normalized 035 carrying it is appended.
func ExtractDataFields(rec *marc.Record, oclc string, reporter Reporter) []marc.Field {
	var fields []marc.Field
	for _, f := range rec.Fields {
		n, err := marc.TagNumber(f.Tag)
		if err != nil || n < 10 {
			continue
		}
		switch f.Tag {
		case TagLocation, TagHoldings, TagCirculation, TagOCLC:
			continue
		}
		fields = append(fields, f)
	}

	if oclc != "" {
		fields = append(fields, marc.NewDataField(TagOCLC, " ", " ", "a", "("+oclcControlSource+")"+oclc))
		if reporter != nil {
			reporter.BibWithOCLC()
		}
	}
	return fields
}

// ExtractBibID returns the first 907$a.
func ExtractBibID(rec *marc.Record) (string, bool) {
	fields := rec.Select(TagBibID)
	if len(fields) == 0 {
		return "", false
	}
	v, ok := fields[0].Decoded().First("a")
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ExtractOCLCNumber resolves the OCLC number. 991$y wins, then 001 when 003
// says the control number is OCLC's, then the first 035$a with an (OCoLC)
// prefix.
func ExtractOCLCNumber(rec *marc.Record) (string, bool) {
	if fields := rec.Select(TagOCLCCrossRef); len(fields) > 0 {
		if v, ok := fields[0].Decoded().First("y"); ok && v != "" {
			return v, true
		}
	}

	if source, ok := rec.ControlValue(TagControlSource); ok && source == oclcControlSource {
		if v, ok := rec.ControlValue(TagControlNumber); ok && v != "" {
			return v, true
		}
	}

	for _, f := range rec.Select(TagOCLC) {
		for _, sf := range f.Subfields {
			if sf.Code != "a" || !strings.Contains(sf.Value, oclcControlSource) {
				continue
			}
			if m := oclcPattern.FindStringSubmatch(sf.Value); m != nil {
				return m[1], true
			}
		}
	}
	return "", false
}

// ExtractBibCallNumbers returns the first $h of every 952.
func ExtractBibCallNumbers(rec *marc.Record) []string {
	var out []string
	for _, f := range rec.Select(TagBibCallNumber) {
		if v, ok := f.Decoded().First("h"); ok && v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ExtractItemFields decodes every 852 and 876.
func ExtractItemFields(rec *marc.Record) ItemFields {
	var items ItemFields
	for _, f := range rec.Select(TagLocation, TagCirculation) {
		if len(f.Subfields) == 0 {
			continue
		}
		if f.Tag == TagLocation {
			items.Location = append(items.Location, f.Decoded())
		} else {
			items.Circulation = append(items.Circulation, f.Decoded())
		}
	}
	return items
}

// ExtractHoldingFields decodes every 866.
func ExtractHoldingFields(rec *marc.Record) []marc.SubfieldMap {
	var holdings []marc.SubfieldMap
	for _, f := range rec.Select(TagHoldings) {
		if len(f.Subfields) == 0 {
			continue
		}
		holdings = append(holdings, f.Decoded())
	}
	return holdings
}
