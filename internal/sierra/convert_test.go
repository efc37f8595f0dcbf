package sierra

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nypl/scsbxml/internal/scsb"
)

const bibJSON = `{
  "id": "11995345",
  "varFields": [
    {"fieldTag": "_", "content": "00000cam  2200000 a 4500"},
    {"fieldTag": "o", "marcTag": "001", "content": "NYPG003001594-B"},
    {"fieldTag": "a", "marcTag": "100", "ind1": "1", "ind2": " ",
     "subfields": [{"tag": "a", "content": "Edwards, Joseph,"}, {"tag": "d", "content": "1946-"}]},
    {"fieldTag": "y", "marcTag": "991", "ind1": " ", "ind2": " ",
     "subfields": [{"tag": "y", "content": "5893446"}]},
    {"fieldTag": "n", "content": "staff note"}
  ]
}`

const itemsJSON = `[
  {
    "id": "10000001",
    "barcode": "33433047331719",
    "callNumber": "JND 94-72 no. 1",
    "location": {"code": "rc2ma"},
    "status": {"code": "-"},
    "fixedFields": {"58": {"label": "COPY #", "value": 1}, "61": {"label": "I TYPE", "value": "55"}, "108": {"label": "OPACMSG", "value": "-"}},
    "varFields": [{"fieldTag": "v", "content": "v. 1"}]
  },
  {
    "id": "10000002",
    "barcode": "33433047331727",
    "location": {"code": "rc2ma"},
    "status": {"code": "-", "duedate": "2017-10-12T04:00:00Z"},
    "fixedFields": {"61": {"label": "I TYPE", "value": 55}, "108": {"label": "OPACMSG", "value": "u"}},
    "varFields": [
      {"fieldTag": "c", "marcTag": "852", "subfields": [{"tag": "h", "content": "JND 94-72 no. 1"}]},
      {"fieldTag": "l", "content": "CGD Committed"}
    ]
  },
  {"id": "10000003", "deleted": true}
]`

func fixtures(t *testing.T) (*Bib, []Item) {
	t.Helper()
	var bib Bib
	require.NoError(t, json.Unmarshal([]byte(bibJSON), &bib))
	var items []Item
	require.NoError(t, json.Unmarshal([]byte(itemsJSON), &items))
	return &bib, items
}

func TestToRecord(t *testing.T) {
	bib, items := fixtures(t)
	rec := ToRecord(bib, items)

	assert.Equal(t, "00000cam  2200000 a 4500", rec.Leader)

	var tags []string
	for _, f := range rec.Fields {
		tags = append(tags, f.Tag)
	}
	assert.Equal(t, []string{"001", "100", "991", "907", "852", "876", "852", "876"}, tags)

	bibID, ok := scsb.ExtractBibID(rec)
	require.True(t, ok)
	assert.Equal(t, ".b119953456", bibID)

	loc := rec.Fields[4].Decoded().Firsts()
	assert.Equal(t, map[string]string{"a": ItemID("10000001"), "b": "rc2ma", "h": "JND 94-72 no. 1", "3": "v. 1"}, loc)

	circ := rec.Fields[5].Decoded().Firsts()
	assert.Equal(t, "33433047331719", circ["p"])
	assert.Equal(t, "-", circ["j"])
	assert.Equal(t, "1", circ["t"])
	assert.Equal(t, "55", circ["y"])
	assert.Equal(t, "rc2ma", circ["k"])

	loaned := rec.Fields[7].Decoded().Firsts()
	assert.Equal(t, "10/12/17", loaned["j"])
	assert.Equal(t, "55", loaned["y"])
	assert.Equal(t, "JND 94-72 no. 1", rec.Fields[6].Decoded().Firsts()["h"])
}

func TestToRecordKeepsExistingBibID(t *testing.T) {
	bib := &Bib{ID: "1", VarFields: []VarField{
		{FieldTag: "y", MarcTag: "907", Subfields: []Subfield{{Tag: "a", Content: ".b10000001"}}},
	}}
	rec := ToRecord(bib, nil)
	assert.Len(t, rec.Select("907"), 1)
	assert.Equal(t, " ", rec.Fields[0].Ind1)
}

func TestCommittedAnnotations(t *testing.T) {
	_, items := fixtures(t)
	got := CommittedAnnotations(items)

	assert.Equal(t, "", got[ItemID("10000001")])
	assert.Equal(t, "CGD Committed", got[ItemID("10000002")])
	assert.Len(t, got, 3)
}

func TestItemIDs(t *testing.T) {
	assert.Equal(t, ".i1235", ItemID("123"))
	assert.Equal(t, ".i456x", ItemID("456"))
	assert.Equal(t, ".b119953456", BibID("11995345"))
}

func TestConvertAPIRecord(t *testing.T) {
	bib, items := fixtures(t)
	conv := scsb.NewConverter(scsb.Options{FallbackCustomerCode: "PL"})

	exp, err := conv.Convert(ToRecord(bib, items), CommittedAnnotations(items))
	require.NoError(t, err)
	require.Len(t, exp.Holdings, 1)
	assert.Equal(t, ".b119953456", exp.BibID)

	records := exp.Holdings[0].Find("items", "content", "collection").ChildrenNamed("record")
	require.Len(t, records, 2)

	groups := make([]string, 0, len(records))
	for _, r := range records {
		fields := r.ChildrenNamed("datafield")
		require.Len(t, fields, 2)
		groups = append(groups, fields[1].Children[0].Value)
	}
	assert.Equal(t, []string{scsb.Shared, scsb.Committed}, groups)

	var oclc []string
	for _, df := range exp.Bib.Find("content", "collection", "record").ChildrenNamed("datafield") {
		if tag, _ := df.Attr("tag"); tag == "035" {
			oclc = append(oclc, df.Children[0].Value)
		}
	}
	assert.Equal(t, []string{"(OCoLC)5893446"}, oclc)
}
