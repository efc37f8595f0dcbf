package sierra

import (
	"github.com/nypl/scsbxml/internal/marc"
	"github.com/nypl/scsbxml/internal/scsb"
)

// Item varField and fixed field codes carried into the export.
const (
	leaderFieldTag     = "_"
	volumeFieldTag     = "v"
	callNumberFieldTag = "c"
	annotationFieldTag = "l"

	fixedCopyNumber  = "58"
	fixedItemType    = "61"
	fixedOPACMessage = "108"
)

// BibID returns the check-digited bib id, e.g. ".b119953456".
func BibID(id string) string {
	return scsb.CheckDigit(".b" + id)
}

// ItemID returns the check-digited item id, e.g. ".i1235".
func ItemID(id string) string {
	return scsb.CheckDigit(".i" + id)
}

// ToRecord builds a MARC record from a bib and its items. MARC-tagged
// bib varFields become control or data fields, the "_" varField becomes
// the leader, and a 907$a bib id is added when the bib has none. Each
// item contributes an 852 and an 876 keyed by its check-digited id.
func ToRecord(bib *Bib, items []Item) *marc.Record {
	rec := &marc.Record{}
	hasBibID := false

	for _, vf := range bib.VarFields {
		if vf.FieldTag == leaderFieldTag && vf.MarcTag == "" {
			rec.Leader = vf.Content
			continue
		}
		if vf.MarcTag == "" {
			continue
		}
		n, err := marc.TagNumber(vf.MarcTag)
		if err != nil {
			continue
		}
		if n < 10 {
			rec.Append(marc.NewControlField(vf.MarcTag, vf.Content))
			continue
		}
		f := marc.Field{Tag: vf.MarcTag, Ind1: indicator(vf.Ind1), Ind2: indicator(vf.Ind2)}
		for _, sf := range vf.Subfields {
			f.Subfields = append(f.Subfields, marc.Subfield{Code: sf.Tag, Value: sf.Content})
		}
		if f.Tag == scsb.TagBibID {
			hasBibID = true
		}
		rec.Append(f)
	}
	if !hasBibID {
		rec.Append(marc.NewDataField(scsb.TagBibID, " ", " ", "a", BibID(bib.ID)))
	}

	for _, item := range items {
		if item.Deleted {
			continue
		}
		rec.Append(locationField(item), circulationField(item))
	}
	return rec
}

func locationField(item Item) marc.Field {
	f := marc.Field{Tag: scsb.TagLocation, Ind1: "8", Ind2: " "}
	add := func(code, value string) {
		if value != "" {
			f.Subfields = append(f.Subfields, marc.Subfield{Code: code, Value: value})
		}
	}
	add("a", ItemID(item.ID))
	if item.Location != nil {
		add("b", item.Location.Code)
	}
	callNumber := item.CallNumber
	if callNumber == "" {
		callNumber = itemCallNumber(item)
	}
	add("h", callNumber)
	if volume, ok := item.VarContent(volumeFieldTag); ok {
		add("3", volume)
	}
	return f
}

func circulationField(item Item) marc.Field {
	f := marc.Field{Tag: scsb.TagCirculation, Ind1: " ", Ind2: " "}
	add := func(code, value string) {
		if value != "" {
			f.Subfields = append(f.Subfields, marc.Subfield{Code: code, Value: value})
		}
	}
	add("a", ItemID(item.ID))
	add("j", item.StatusCode())
	if item.Location != nil {
		add("k", item.Location.Code)
	}
	add("o", item.Fixed(fixedOPACMessage))
	add("p", item.Barcode)
	add("t", item.Fixed(fixedCopyNumber))
	add("y", item.Fixed(fixedItemType))
	return f
}

// itemCallNumber reads the call number from the item's "c" varField,
// preferring its $h subfield.
func itemCallNumber(item Item) string {
	for _, vf := range item.VarFields {
		if vf.FieldTag != callNumberFieldTag {
			continue
		}
		for _, sf := range vf.Subfields {
			if sf.Tag == "h" && sf.Content != "" {
				return sf.Content
			}
		}
		if vf.Content != "" {
			return vf.Content
		}
	}
	return ""
}

// CommittedAnnotations maps each check-digited item id to the content of
// the item's "l" varField, where cataloguers record "CGD Committed".
func CommittedAnnotations(items []Item) map[string]string {
	out := make(map[string]string, len(items))
	for _, item := range items {
		content, _ := item.VarContent(annotationFieldTag)
		out[ItemID(item.ID)] = content
	}
	return out
}

func indicator(s string) string {
	if s == "" {
		return " "
	}
	return s
}
