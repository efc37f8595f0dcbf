package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/nypl/scsbxml/internal/sierra"
)

type fakeCatalog struct {
	mu       sync.Mutex
	bibs     map[string]*sierra.Bib
	items    []sierra.Item
	err      error
	bibCalls []string
}

func (f *fakeCatalog) ItemsByBarcode(_ context.Context, barcode string) ([]sierra.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, item := range f.items {
		if item.Barcode == barcode {
			return []sierra.Item{item}, nil
		}
	}
	return nil, sierra.ErrNotFound
}

func (f *fakeCatalog) Bib(_ context.Context, id string) (*sierra.Bib, error) {
	f.mu.Lock()
	f.bibCalls = append(f.bibCalls, id)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	bib, ok := f.bibs[id]
	if !ok {
		return nil, sierra.ErrNotFound
	}
	return bib, nil
}

func (f *fakeCatalog) ItemsByBib(_ context.Context, bibID string) ([]sierra.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []sierra.Item
	for _, item := range f.items {
		if len(item.BibIDs) > 0 && item.BibIDs[0] == bibID {
			out = append(out, item)
		}
	}
	return out, nil
}

func newCatalog(location string) *fakeCatalog {
	bib := &sierra.Bib{
		ID: "11995345",
		VarFields: []sierra.VarField{
			{FieldTag: "_", Content: "00000cam  2200000 a 4500"},
			{FieldTag: "o", MarcTag: "001", Content: "NYPG003001594-B"},
			{FieldTag: "t", MarcTag: "245", Ind1: "1", Ind2: "0",
				Subfields: []sierra.Subfield{{Tag: "a", Content: "Edwards family papers"}}},
		},
	}
	fixed := func(restriction, opac string) map[string]sierra.FixedField {
		return map[string]sierra.FixedField{
			"61":  {Label: "I TYPE", Value: restriction},
			"108": {Label: "OPACMSG", Value: opac},
		}
	}
	return &fakeCatalog{
		bibs: map[string]*sierra.Bib{"11995345": bib},
		items: []sierra.Item{
			{
				ID: "10000001", BibIDs: []string{"11995345"}, Barcode: "33433047331719",
				CallNumber: "JND 94-72 no. 1", Location: &sierra.Code{Code: location},
				Status: &sierra.Code{Code: "-"}, FixedFields: fixed("55", "-"),
			},
			{
				ID: "10000002", BibIDs: []string{"11995345"}, Barcode: "33433047331727",
				CallNumber: "JND 94-72 no. 1", Location: &sierra.Code{Code: location},
				Status: &sierra.Code{Code: "-"}, FixedFields: fixed("55", "u"),
				VarFields: []sierra.VarField{{FieldTag: "l", Content: "CGD Committed"}},
			},
		},
	}
}

func serve(t *testing.T, h *Handler, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, BibsPath+query, nil)
	rec := httptest.NewRecorder()
	h.HandleBibs(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder, status int) ErrorResponse {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("Expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %s", ct)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if body.StatusCode != status {
		t.Errorf("Expected statusCode %d in body, got %d", status, body.StatusCode)
	}
	return body
}

func TestHandleBibsInvalidParameters(t *testing.T) {
	h := New(Options{Catalog: newCatalog("rc2ma")})

	tests := []struct {
		name  string
		query string
	}{
		{"missing customer code", "?barcode=123"},
		{"missing barcode and bnumber", "?customerCode=PL"},
		{"blank customer code", "?customerCode=%20&bnumber=b11995345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := decodeError(t, serve(t, h, tt.query), http.StatusBadRequest)
			if body.ErrorCode != InvalidParameterError {
				t.Errorf("Expected %s, got %s", InvalidParameterError, body.ErrorCode)
			}
			if body.Error == "" {
				t.Error("Expected an error message")
			}
		})
	}
}

func TestHandleBibsBarcodeNotFound(t *testing.T) {
	h := New(Options{Catalog: newCatalog("rc2ma")})

	body := decodeError(t, serve(t, h, "?barcode=1234567891011&customerCode=NA"), http.StatusNotFound)
	if body.Error != msgBarcodeNotFound {
		t.Errorf("Expected %q, got %q", msgBarcodeNotFound, body.Error)
	}
}

func TestHandleBibsNoEligibleItems(t *testing.T) {
	h := New(Options{Catalog: newCatalog("mal92")})

	body := decodeError(t, serve(t, h, "?barcode=33433047331719&customerCode=NA"), http.StatusBadRequest)
	if body.Error != msgNoEligibleItems {
		t.Errorf("Expected %q, got %q", msgNoEligibleItems, body.Error)
	}
	if body.ErrorCode != InvalidParameterError {
		t.Errorf("Expected %s, got %s", InvalidParameterError, body.ErrorCode)
	}
}

func TestHandleBibsByBarcode(t *testing.T) {
	catalog := newCatalog("rc2ma")
	h := New(Options{Catalog: catalog})

	rec := serve(t, h, "?barcode=33433047331719&customerCode=PL")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/xml" {
		t.Errorf("Expected application/xml, got %s", ct)
	}

	out := rec.Body.String()
	for _, want := range []string{
		"<bibRecords><bibRecord><bib>",
		"<owningInstitutionBibId>.b119953456</owningInstitutionBibId>",
		`<subfield code="h">JND 94-72 no. 1</subfield>`,
		`<subfield code="j">Available</subfield>`,
		`<subfield code="a">Shared</subfield>`,
		`<subfield code="b">PL</subfield>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %s", want)
		}
	}
	if n := strings.Count(out, `tag="876"`); n != 1 {
		t.Errorf("Expected 1 item, got %d", n)
	}
	if strings.Contains(out, "33433047331727") {
		t.Error("Expected only the requested barcode to be exported")
	}
	if !reflect.DeepEqual(catalog.bibCalls, []string{"11995345"}) {
		t.Errorf("Expected one bib lookup, got %v", catalog.bibCalls)
	}
}

func TestHandleBibsByBibNumber(t *testing.T) {
	h := New(Options{Catalog: newCatalog("rc2ma")})

	rec := serve(t, h, "?bnumber=b11995345&customerCode=NA")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	out := rec.Body.String()
	if n := strings.Count(out, `tag="876"`); n != 2 {
		t.Errorf("Expected 2 items, got %d", n)
	}
	for _, want := range []string{`<subfield code="a">Committed</subfield>`, `<subfield code="a">Shared</subfield>`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %s", want)
		}
	}
}

func TestHandleBibsBibNotFound(t *testing.T) {
	h := New(Options{Catalog: newCatalog("rc2ma")})
	decodeError(t, serve(t, h, "?bnumber=b22222222&customerCode=NA"), http.StatusNotFound)
}

func TestHandleBibsCatalogFailure(t *testing.T) {
	catalog := newCatalog("rc2ma")
	catalog.err = errors.New("connection refused")
	h := New(Options{Catalog: catalog})

	body := decodeError(t, serve(t, h, "?bnumber=b11995345&customerCode=NA"), http.StatusBadGateway)
	if body.ErrorCode != "InternalServerError" {
		t.Errorf("Expected InternalServerError, got %s", body.ErrorCode)
	}
}

func TestHandleBibsMethodNotAllowed(t *testing.T) {
	h := New(Options{Catalog: newCatalog("rc2ma")})
	req := httptest.NewRequest(http.MethodPost, BibsPath, nil)
	rec := httptest.NewRecorder()
	h.HandleBibs(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rec.Code)
	}
}

func TestBibNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"b11995345", "11995345"},
		{".b119953456", "11995345"},
		{"B11995345", "11995345"},
		{"11995345", "11995345"},
		{" .b1199534x ", "1199534x"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := BibNumber(tt.input); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}
