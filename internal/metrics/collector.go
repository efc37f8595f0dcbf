// Package metrics records conversion events as Prometheus counters and
// keeps an in-memory tally for run summaries and reports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nypl/scsbxml/internal/scsb"
)

// Collector implements scsb.Reporter.
type Collector struct {
	bibsWithOCLC prometheus.Counter
	items        *prometheus.CounterVec
	rules        *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	holdings     prometheus.Counter
	records      prometheus.Counter

	tally *Tally
}

var _ scsb.Reporter = (*Collector)(nil)

// NewCollector creates a collector and registers its counters with reg.
// A nil reg leaves the counters unregistered, which is what one-shot CLI
// runs want.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		bibsWithOCLC: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scsb_bibs_with_oclc_total",
			Help: "Bibs exported with a resolved OCLC number.",
		}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scsb_items_total",
			Help: "Items exported, by use restriction and collection group designation.",
		}, []string{"use_restriction", "group_designation"}),
		rules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scsb_item_rules_total",
			Help: "Items exported, by the classification rules that fired.",
		}, []string{"use_rule", "group_rule"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scsb_items_rejected_total",
			Help: "Items left out of the export, by reason.",
		}, []string{"reason"}),
		holdings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scsb_holdings_total",
			Help: "Holdings exported.",
		}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scsb_records_total",
			Help: "Bibliographic records converted.",
		}),
		tally: NewTally(),
	}
	if reg != nil {
		reg.MustRegister(c.bibsWithOCLC, c.items, c.rules, c.rejected, c.holdings, c.records)
	}
	return c
}

func (c *Collector) BibWithOCLC() {
	c.bibsWithOCLC.Inc()
	c.tally.BibWithOCLC()
}

func (c *Collector) ItemRejected(reason scsb.RejectReason) {
	c.rejected.WithLabelValues(string(reason)).Inc()
	c.tally.ItemRejected(reason)
}

func (c *Collector) ItemClassified(class scsb.Classification) {
	c.items.WithLabelValues(class.UseRestriction, class.GroupDesignation).Inc()
	c.rules.WithLabelValues(class.UseRule, class.GroupRule).Inc()
	c.tally.ItemClassified(class)
}

func (c *Collector) HoldingAssembled() {
	c.holdings.Inc()
	c.tally.HoldingAssembled()
}

func (c *Collector) RecordConverted(items int) {
	c.records.Inc()
	c.tally.RecordConverted(items)
}

// Snapshot returns the tally accumulated since the collector was created.
func (c *Collector) Snapshot() Snapshot {
	return c.tally.Snapshot()
}
