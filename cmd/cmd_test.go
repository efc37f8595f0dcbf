package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nypl/scsbxml/internal/export"
	"github.com/nypl/scsbxml/internal/marc"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	out, err := run(t, "classify", "--access", "u", "--restriction", "55", "--customer-code", "NA")
	require.NoError(t, err)

	var result struct {
		Policy         string `yaml:"policy"`
		Classification struct {
			UseRestriction   string `yaml:"use_restriction"`
			GroupDesignation string `yaml:"group_designation"`
			UseRule          string `yaml:"use_rule"`
		} `yaml:"classification"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &result))
	assert.Equal(t, "2023.1", result.Policy)
	assert.Equal(t, "Supervised Use", result.Classification.UseRestriction)
	assert.Equal(t, "Shared", result.Classification.GroupDesignation)
	assert.Equal(t, "supervised-access", result.Classification.UseRule)
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()

	rec := &marc.Record{Leader: "00000cam a2200000 a 4500"}
	rec.Append(
		marc.NewControlField("001", "NYPG001"),
		marc.NewDataField("245", "1", "0", "a", "Edwards family papers"),
		marc.NewDataField("907", " ", " ", "a", ".b100000012"),
		marc.NewDataField("852", "8", " ", "a", ".i1", "b", "rc2ma", "h", "*ZZ-1"),
		marc.NewDataField("876", " ", " ", "a", ".i1", "k", "rc2ma", "p", "33433001", "j", "-", "o", "-", "y", "55"),
	)
	raw, err := marc.Encode(rec)
	require.NoError(t, err)
	input := filepath.Join(dir, "records.mrc")
	require.NoError(t, os.WriteFile(input, raw, 0o644))

	barcodes := filepath.Join(dir, "barcodes.csv")
	require.NoError(t, os.WriteFile(barcodes, []byte("33433001,PA\n"), 0o644))

	output := filepath.Join(dir, "out", "recap.xml")
	reportPath := filepath.Join(dir, "run.yaml")

	out, err := run(t, "convert", input, "--output", output, "--barcodes", barcodes, "--report", reportPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Records")

	doc, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(doc), "<bibRecord>"))
	assert.Contains(t, string(doc), `<subfield code="b">PA</subfield>`)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report export.Report
	require.NoError(t, yaml.Unmarshal(data, &report))
	assert.Equal(t, input, report.Config.Input)
	assert.Equal(t, output, report.Config.Output)
	assert.Equal(t, 1, report.Summary.Items)
}

func TestConvertCommandMissingInput(t *testing.T) {
	_, err := run(t, "convert", filepath.Join(t.TempDir(), "missing.mrc"))
	assert.Error(t, err)
}

func TestBarcodesImportCommand(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "barcodes.csv")
	require.NoError(t, os.WriteFile(file, []byte("33433001,NA\n33433002,PA\n"), 0o644))
	store := filepath.Join(dir, "barcodes.db")

	out, err := run(t, "barcodes", "import", file, "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 barcodes (2 in store)")

	_, err = run(t, "barcodes", "import", file, "--store", filepath.Join(dir, "barcodes.csv"))
	assert.Error(t, err)
}
