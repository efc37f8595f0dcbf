package export

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nypl/scsbxml/internal/metrics"
	"github.com/nypl/scsbxml/internal/scsb"
)

func sampleTree() *scsb.Node {
	field := scsb.NewNode("datafield").
		WithAttr("ind1", " ").
		WithAttr("ind2", " ").
		WithAttr("tag", "876").
		Add(
			scsb.Leaf("subfield", "33433001", scsb.Attr{Name: "code", Value: "p"}),
			scsb.Leaf("subfield", "", scsb.Attr{Name: "code", Value: "h"}),
			scsb.Leaf("subfield", "A & B <c>", scsb.Attr{Name: "code", Value: "a"}),
		)
	record := scsb.NewNode("record", scsb.Leaf("leader", "00000cam a2200000 a 4500"), field)
	collection := scsb.NewNode("collection", record).WithAttr("xmlns", scsb.MARCXMLNamespace)
	return scsb.NewNode("bibRecord",
		scsb.NewNode("bib",
			scsb.Leaf("owningInstitutionId", "NYPL"),
			scsb.NewNode("content", collection),
		),
	)
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleTree(), sampleTree()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, xml.Header))
	assert.Contains(t, out, `<collection xmlns="http://www.loc.gov/MARC21/slim">`)
	assert.Contains(t, out, `<datafield ind1=" " ind2=" " tag="876">`)
	assert.Contains(t, out, `<subfield code="h"></subfield>`)
	assert.Contains(t, out, `A &amp; B &lt;c&gt;`)
	assert.True(t, strings.HasSuffix(out, "</bibRecords>"))

	var doc struct {
		XMLName xml.Name `xml:"bibRecords"`
		Records []struct {
			Bib struct {
				Institution string `xml:"owningInstitutionId"`
			} `xml:"bib"`
		} `xml:"bibRecord"`
	}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Records, 2)
	assert.Equal(t, "NYPL", doc.Records[0].Bib.Institution)
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf))
	assert.Equal(t, xml.Header+"<bibRecords></bibRecords>", buf.String())
}

func TestWriterRejectsWriteAfterClose(t *testing.T) {
	w, err := NewWriter(io.Discard)
	require.NoError(t, err)
	require.NoError(t, w.Write(sampleTree()))
	require.NoError(t, w.Close())
	assert.Equal(t, 1, w.Count())
	assert.Error(t, w.Write(sampleTree()))
	assert.NoError(t, w.Close())
}

func TestFileSink(t *testing.T) {
	dir := t.TempDir()
	dest, err := FileSink{Dir: dir}.Put(context.Background(), "2024/out.xml", strings.NewReader("<bibRecords/>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024", "out.xml"), dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "<bibRecords/>", string(data))
}

func TestS3Sink(t *testing.T) {
	var (
		mu          sync.Mutex
		gotPath     string
		gotBody     string
		contentType string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotPath, gotBody, contentType = r.URL.Path, string(body), r.Header.Get("Content-Type")
		mu.Unlock()
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	sink, err := NewS3Sink(context.Background(), S3Config{
		Bucket:    "recap-exports",
		Endpoint:  server.URL,
		Prefix:    "/nightly/",
		PathStyle: true,
	})
	require.NoError(t, err)

	loc, err := sink.Put(context.Background(), "out.xml", bytes.NewReader([]byte("<bibRecords></bibRecords>")))
	require.NoError(t, err)
	assert.Equal(t, "s3://recap-exports/nightly/out.xml", loc)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/recap-exports/nightly/out.xml", gotPath)
	assert.Contains(t, gotBody, "<bibRecords></bibRecords>")
	assert.Equal(t, contentTypeXML, contentType)
}

func TestNewS3SinkRequiresBucket(t *testing.T) {
	_, err := NewS3Sink(context.Background(), S3Config{})
	assert.Error(t, err)
}

func TestWriteReport(t *testing.T) {
	tally := metrics.NewTally()
	tally.ItemRejected(scsb.RejectNotRecap)
	tally.RecordConverted(0)

	path := filepath.Join(t.TempDir(), "reports", "run.yaml")
	report := NewReport(RunConfig{Input: "in.mrc", Output: "out.xml", PolicyVersion: "2023.1"}, tally.Snapshot(),
		[]RecordFailure{{Index: 3, Error: "malformed record"}})
	require.NoError(t, WriteReport(path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Report
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "in.mrc", got.Config.Input)
	assert.NotEmpty(t, got.Config.Timestamp)
	assert.Equal(t, 1, got.Summary.Records)
	assert.Equal(t, 1, got.Summary.Rejected["not-recap"])
	require.Len(t, got.Failures, 1)
	assert.Equal(t, 3, got.Failures[0].Index)
}
