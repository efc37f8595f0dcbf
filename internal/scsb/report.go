package scsb

// RejectReason says why an item was left out of the export.
type RejectReason string

const (
	RejectMissingPair         RejectReason = "missing-location-or-circulation"
	RejectMissingLocationCode RejectReason = "missing-location-code"
	RejectNotRecap            RejectReason = "not-recap"
	RejectMissingBarcode      RejectReason = "missing-barcode"
	RejectInvalidBarcode      RejectReason = "invalid-barcode"
	RejectDuplicateBarcode    RejectReason = "duplicate-barcode"
	RejectNoCustomerCode      RejectReason = "no-customer-code"
)

// Reporter receives diagnostic events from a conversion. Implementations
// must be safe for concurrent use when records are converted in parallel.
type Reporter interface {
	BibWithOCLC()
	ItemRejected(reason RejectReason)
	ItemClassified(c Classification)
	HoldingAssembled()
	RecordConverted(items int)
}

// NopReporter discards every event.
type NopReporter struct{}

func (NopReporter) BibWithOCLC() {}
func (NopReporter) ItemRejected(RejectReason) {}
func (NopReporter) ItemClassified(Classification) {}
func (NopReporter) HoldingAssembled() {}
func (NopReporter) RecordConverted(int) {}
