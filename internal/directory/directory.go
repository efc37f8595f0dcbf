// Package directory maps item barcodes to the two-character customer codes
// ReCAP uses to route requests. Entries come from barcode files or from a
// SQL table populated by the barcodes import command.
package directory

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/nypl/scsbxml/internal/scsb"
)

var numericBarcode = regexp.MustCompile(`^\d+$`)

// Entry is one barcode to customer code mapping.
type Entry struct {
	Barcode      string `parquet:"barcode" yaml:"barcode"`
	CustomerCode string `parquet:"customer_code" yaml:"customer_code"`
}

// Validate checks the barcode is numeric and the customer code is two
// characters.
func (e Entry) Validate() error {
	if !numericBarcode.MatchString(strings.TrimSpace(e.Barcode)) {
		return fmt.Errorf("barcode %q is not numeric", e.Barcode)
	}
	if utf8.RuneCountInString(strings.TrimSpace(e.CustomerCode)) != 2 {
		return fmt.Errorf("customer code %q is not two characters", e.CustomerCode)
	}
	return nil
}

// Directory is a concurrency-safe barcode to customer code map. Barcodes
// are compared numerically, so "0033433" and "33433" are the same key.
// A later Set for the same barcode replaces the earlier one.
type Directory struct {
	codes map[string]string
	mu    sync.RWMutex
}

var _ scsb.BarcodeDirectory = (*Directory)(nil)

// New creates an empty Directory.
func New() *Directory {
	return &Directory{
		codes: make(map[string]string),
	}
}

// Lookup returns the customer code for barcode.
func (d *Directory) Lookup(barcode string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	code, exists := d.codes[scsb.NormalizeBarcode(barcode)]
	return code, exists
}

// Set records the customer code for barcode.
func (d *Directory) Set(barcode, code string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.codes[scsb.NormalizeBarcode(barcode)] = strings.TrimSpace(code)
}

// Len returns the number of barcodes in the directory.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.codes)
}

// Entries returns a snapshot of the directory sorted by barcode.
func (d *Directory) Entries() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]Entry, 0, len(d.codes))
	for k, v := range d.codes {
		result = append(result, Entry{Barcode: k, CustomerCode: v})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Barcode < result[j].Barcode })
	return result
}
