package scsb

import (
	"log/slog"
	"strings"

	"github.com/nypl/scsbxml/internal/marc"
)

// DefaultInstitutionID is the owning institution written on every bib.
const DefaultInstitutionID = "NYPL"

// Export is one converted bibliographic record.
type Export struct {
	BibID     string
	Bib       *Node
	Holdings  []*Node
	ItemCount int
}

// Tree returns the bibRecord element for the export.
func (e *Export) Tree() *Node {
	rec := NewNode("bibRecord", e.Bib)
	for _, h := range e.Holdings {
		rec.Add(NewNode("holdings", h))
	}
	return rec
}

// Options configures a Converter.
type Options struct {
	Policy               *Policy
	Directory            BarcodeDirectory
	FallbackCustomerCode string
	InstitutionID        string
	Reporter             Reporter
	Logger               *slog.Logger
}

// Converter turns records into export trees. It holds no per-record state
// and may be shared between goroutines as long as its Directory is not
// written to during a conversion.
type Converter struct {
	InstitutionID string
	Assembler     *Assembler
	Reporter      Reporter
}

// NewConverter builds a Converter, filling defaults for unset options.
func NewConverter(opts Options) *Converter {
	if opts.Policy == nil {
		opts.Policy = DefaultPolicy()
	}
	if opts.InstitutionID == "" {
		opts.InstitutionID = DefaultInstitutionID
	}
	if opts.Reporter == nil {
		opts.Reporter = NopReporter{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Converter{
		InstitutionID: opts.InstitutionID,
		Reporter:      opts.Reporter,
		Assembler: &Assembler{
			Policy:               opts.Policy,
			Directory:            opts.Directory,
			FallbackCustomerCode: opts.FallbackCustomerCode,
			Reporter:             opts.Reporter,
			Logger:               opts.Logger,
		},
	}
}

// Convert extracts rec and assembles its export. overrides maps item ids to
// catalog annotations and may be nil.
func (c *Converter) Convert(rec *marc.Record, overrides map[string]string) (*Export, error) {
	src, err := Extract(rec, c.Reporter)
	if err != nil {
		return nil, err
	}
	src.Overrides = overrides
	return c.AssembleRecord(src), nil
}

// AssembleRecord builds the bib and one holding per call-number group.
// Groups without items produce no holding.
func (c *Converter) AssembleRecord(src *Source) *Export {
	groups := c.Assembler.AssembleItems(src)

	exp := &Export{
		BibID: src.BibID,
		Bib:   c.AssembleBib(src),
	}
	for _, cn := range groups.CallNumbers() {
		holding, ok := AssembleHolding(src, groups, cn)
		if !ok {
			continue
		}
		exp.Holdings = append(exp.Holdings, holding)
		exp.ItemCount += len(groups.groups[cn].Items)
		c.Reporter.HoldingAssembled()
	}
	c.Reporter.RecordConverted(exp.ItemCount)
	return exp
}

// AssembleBib builds the bib element: institution, bib id and the MARCXML
// record with leader, control fields and data fields in source order.
func (c *Converter) AssembleBib(src *Source) *Node {
	return AssembleBib(src, c.InstitutionID)
}

// AssembleBib builds the bib element for institution.
func AssembleBib(src *Source, institution string) *Node {
	record := NewNode("record")
	if src.Leader != "" {
		record.Add(Leaf("leader", src.Leader))
	}
	for _, f := range src.ControlFields {
		record.Add(FieldNode(f))
	}
	for _, f := range src.DataFields {
		record.Add(FieldNode(f))
	}

	return NewNode("bib",
		Leaf("owningInstitutionId", institution),
		Leaf("owningInstitutionBibId", src.BibID),
		NewNode("content", collection(record)),
	)
}

// AssembleHolding builds the holding element for one call-number group:
// an 852 listing the group's location codes and call number, an 866
// holding statement, and the group's items. It reports false when the
// group has no items.
//
// The 866 text comes from the record's holding statements, or failing that
// from the items' enumerations. Both are blanked, along with the holdings
// id, when the record has more than one call-number group, since there is
// no way to tell which group a statement describes.
func AssembleHolding(src *Source, groups *ItemGroups, callNumber string) (*Node, bool) {
	grp, ok := groups.Group(callNumber)
	if !ok || len(grp.Items) == 0 {
		return nil, false
	}

	var statements, holdingIDs, enumerations []string
	for _, h := range src.Holdings {
		if v, ok := h.First("y"); ok && v != "" {
			holdingIDs = append(holdingIDs, v)
		}
		if v, ok := h.First("a"); ok && v != "" {
			statements = append(statements, v)
		}
	}
	for _, item := range grp.Items {
		if item.Enumeration != "" {
			enumerations = append(enumerations, item.Enumeration)
		}
	}

	text := strings.Join(statements, ", ")
	if text == "" {
		text = strings.Join(enumerations, ", ")
	}
	holdingsID := strings.Join(holdingIDs, "")
	if groups.Len() > 1 {
		text, holdingsID = "", ""
	}

	location := marc.Field{Tag: TagLocation, Ind1: "8", Ind2: " "}
	for _, code := range grp.LocationCodes {
		location.Subfields = append(location.Subfields, marc.Subfield{Code: "b", Value: code})
	}
	location.Subfields = append(location.Subfields, marc.Subfield{Code: "h", Value: callNumber})
	statement := marc.NewDataField(TagHoldings, " ", " ", "a", text)

	items := collection()
	for _, item := range grp.Items {
		items.Add(NewNode("record", FieldNode(item.Circulation), FieldNode(item.Group)))
	}

	return NewNode("holding",
		Leaf("owningInstitutionHoldingsId", holdingsID),
		NewNode("content", collection(NewNode("record", FieldNode(location), FieldNode(statement)))),
		NewNode("items", NewNode("content", items)),
	), true
}
