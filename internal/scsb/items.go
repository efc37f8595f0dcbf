package scsb

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/nypl/scsbxml/internal/marc"
)

// Availability labels written to 876$j.
const (
	Available    = "Available"
	NotAvailable = "Not Available"
	Loaned       = "Loaned"
)

// DefaultFallbackCustomerCode is used for barcodes missing from the directory.
const DefaultFallbackCustomerCode = "NA"

const syntheticCallNumberPrefix = "ReCAP"

var allDigits = regexp.MustCompile(`^\d+$`)

// BarcodeDirectory resolves an item barcode to its two-letter customer code.
// The converter only reads from it.
type BarcodeDirectory interface {
	Lookup(barcode string) (string, bool)
}

// Item is one exportable item.
type Item struct {
	ID           string
	Barcode      string
	CustomerCode string
	CallNumber   string
	LocationCode string
	Enumeration  string
	Availability string
	Classification

	// Circulation and Group are the 876 and 900 fields written for the item.
	Circulation marc.Field
	Group       marc.Field
}

// CallNumberGroup is the set of items sharing an effective call number.
type CallNumberGroup struct {
	CallNumber    string
	Items         []*Item
	LocationCodes []string
}

// ItemGroups holds accepted items grouped by effective call number, in the
// order each call number was first seen.
type ItemGroups struct {
	order  []string
	groups map[string]*CallNumberGroup
}

func newItemGroups() *ItemGroups {
	return &ItemGroups{groups: make(map[string]*CallNumberGroup)}
}

// CallNumbers returns the call numbers in first-seen order.
func (g *ItemGroups) CallNumbers() []string {
	return append([]string(nil), g.order...)
}

// Group returns the group for a call number.
func (g *ItemGroups) Group(callNumber string) (*CallNumberGroup, bool) {
	grp, ok := g.groups[callNumber]
	return grp, ok
}

// Len returns the number of distinct call numbers.
func (g *ItemGroups) Len() int {
	return len(g.order)
}

// ItemCount returns the number of accepted items across all groups.
func (g *ItemGroups) ItemCount() int {
	n := 0
	for _, grp := range g.groups {
		n += len(grp.Items)
	}
	return n
}

func (g *ItemGroups) add(item *Item) {
	grp, ok := g.groups[item.CallNumber]
	if !ok {
		grp = &CallNumberGroup{CallNumber: item.CallNumber}
		g.groups[item.CallNumber] = grp
		g.order = append(g.order, item.CallNumber)
	}
	grp.Items = append(grp.Items, item)
	if item.LocationCode == "" {
		return
	}
	for _, code := range grp.LocationCodes {
		if code == item.LocationCode {
			return
		}
	}
	grp.LocationCodes = append(grp.LocationCodes, item.LocationCode)
}

// Assembler validates, classifies and groups a record's items.
type Assembler struct {
	Policy    *Policy
	Directory BarcodeDirectory

	// FallbackCustomerCode is used when a barcode is not in Directory.
	// Empty means such items are rejected.
	FallbackCustomerCode string

	Reporter Reporter
	Logger   *slog.Logger
}

func (a *Assembler) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func (a *Assembler) reporter() Reporter {
	if a.Reporter != nil {
		return a.Reporter
	}
	return NopReporter{}
}

func (a *Assembler) policy() *Policy {
	if a.Policy != nil {
		return a.Policy
	}
	return DefaultPolicy()
}

// AssembleItems pairs every item's location and circulation fields by item
// id, drops the items that cannot be exported and groups the rest by
// effective call number. Items keep the order their ids were first seen.
func (a *Assembler) AssembleItems(src *Source) *ItemGroups {
	log := a.logger().With("bib_id", src.BibID)
	rep := a.reporter()
	policy := a.policy()

	var ids []string
	seen := make(map[string]bool)
	collect := func(tag string, fields []marc.SubfieldMap) map[string]map[string]string {
		byID := make(map[string]map[string]string)
		for _, sf := range fields {
			id, ok := sf.First("a")
			if !ok {
				log.Warn("item field missing item id", "tag", tag)
				continue
			}
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
			data, ok := byID[id]
			if !ok {
				data = make(map[string]string)
				byID[id] = data
			}
			for code, value := range sf.Firsts() {
				data[code] = value
			}
		}
		return byID
	}
	locations := collect(TagLocation, src.Items.Location)
	circulations := collect(TagCirculation, src.Items.Circulation)

	groups := newItemGroups()
	barcodesUsed := make(map[string]bool)

	reject := func(id string, reason RejectReason, msg string, args ...any) {
		rep.ItemRejected(reason)
		if reason == RejectNotRecap || reason == RejectMissingPair {
			log.Debug(msg, append([]any{"item_id", id, "reason", reason}, args...)...)
			return
		}
		log.Warn(msg, append([]any{"item_id", id, "reason", reason}, args...)...)
	}

	for _, id := range ids {
		loc, hasLoc := locations[id]
		circ, hasCirc := circulations[id]
		if !hasLoc || !hasCirc {
			reject(id, RejectMissingPair, "item lacks location or circulation field", "has_location", hasLoc, "has_circulation", hasCirc)
			continue
		}

		sublocation, location := loc["b"], circ["k"]
		if sublocation == "" || location == "" {
			reject(id, RejectMissingLocationCode, "item lacks location code", "sublocation", sublocation, "location", location)
			continue
		}
		prefix := policy.Eligibility.RecapLocationPrefix
		if !strings.HasPrefix(sublocation, prefix) || !strings.HasPrefix(location, prefix) {
			reject(id, RejectNotRecap, "item not in ReCAP", "sublocation", sublocation, "location", location)
			continue
		}

		rawBarcode, ok := circ["p"]
		if !ok || rawBarcode == "" {
			reject(id, RejectMissingBarcode, "item has no barcode")
			continue
		}
		barcode := strings.TrimSpace(rawBarcode)
		if !allDigits.MatchString(barcode) {
			reject(id, RejectInvalidBarcode, "non numeric barcode", "barcode", barcode)
			continue
		}
		key := NormalizeBarcode(barcode)
		if barcodesUsed[key] {
			reject(id, RejectDuplicateBarcode, "duplicate barcode in record", "barcode", barcode)
			continue
		}

		customerCode, found := "", false
		if a.Directory != nil {
			customerCode, found = a.Directory.Lookup(barcode)
		}
		if !found || customerCode == "" {
			if a.FallbackCustomerCode == "" {
				reject(id, RejectNoCustomerCode, "barcode not found in directory", "barcode", barcode)
				continue
			}
			customerCode = a.FallbackCustomerCode
		}
		barcodesUsed[key] = true

		data := ItemData{Location: loc, Circulation: circ}
		committed := policy.IsCommitted(src.Overrides[id])
		class := policy.Classify(data, customerCode, committed)
		rep.ItemClassified(class)

		item := &Item{
			ID:             id,
			Barcode:        barcode,
			CustomerCode:   customerCode,
			CallNumber:     effectiveCallNumber(loc["h"], src),
			LocationCode:   strings.TrimSpace(location),
			Enumeration:    loc["3"],
			Classification: class,
		}
		item.Availability = a.availability(log, id, circ["j"])
		item.Circulation = circulationField(item, circ)
		item.Group = marc.NewDataField(TagGroup, " ", " ", "a", class.GroupDesignation, "b", customerCode)

		if circ["t"] == "" {
			log.Debug("item has no circulation type", "item_id", id)
		}
		groups.add(item)
	}
	return groups
}

func (a *Assembler) availability(log *slog.Logger, id, status string) string {
	if status == "" {
		log.Warn("item has no status", "item_id", id)
		return ""
	}
	label, ok := AvailabilityLabel(status)
	if !ok {
		log.Warn("unmapped item status", "item_id", id, "status", status)
	}
	return label
}

// AvailabilityLabel maps a circulation status code to its export label.
// "o" and "-" are available, any other single character is not, and a
// due date (anything with a slash) is loaned.
func AvailabilityLabel(status string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(status))
	switch {
	case s == "o" || s == "-":
		return Available, true
	case len([]rune(s)) == 1:
		return NotAvailable, true
	case strings.Contains(status, "/"):
		return Loaned, true
	}
	return "", false
}

// NormalizeBarcode strips surrounding whitespace and leading zeros so that
// barcodes compare as numbers.
func NormalizeBarcode(barcode string) string {
	b := strings.TrimLeft(strings.TrimSpace(barcode), "0")
	if b == "" && strings.TrimSpace(barcode) != "" {
		return "0"
	}
	return b
}

func effectiveCallNumber(itemCallNumber string, src *Source) string {
	cn := strings.TrimSpace(itemCallNumber)
	if cn == "" && len(src.CallNumbers) > 0 {
		cn = strings.TrimSpace(src.CallNumbers[0])
	}
	if cn == "" {
		cn = strings.TrimSpace(syntheticCallNumberPrefix + " " + src.BibID)
	}
	return cn
}

// circulationField builds the exported 876: barcode, use restriction, item
// id, availability, circulation type and enumeration, each only when set.
func circulationField(item *Item, circ map[string]string) marc.Field {
	f := marc.NewDataField(TagCirculation, " ", " ", "p", item.Barcode)
	add := func(code, value string) {
		if value != "" {
			f.Subfields = append(f.Subfields, marc.Subfield{Code: code, Value: value})
		}
	}
	// an empty use restriction is still written; it means unrestricted
	f.Subfields = append(f.Subfields, marc.Subfield{Code: "h", Value: item.UseRestriction})
	add("a", item.ID)
	add("j", item.Availability)
	add("t", circ["t"])
	add("3", item.Enumeration)
	return f
}
