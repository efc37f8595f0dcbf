package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nypl/scsbxml/internal/export"
	"github.com/nypl/scsbxml/internal/scsb"
	"github.com/nypl/scsbxml/internal/sierra"
)

// BibsPath serves SCSB XML for a single bib.
const BibsPath = "/api/v0.1/recap/nypl-bibs"

const (
	msgBarcodeNotFound = "Barcode not found in ItemService"
	msgNoEligibleItems = "SCSB XML Formatter determined that no items were suitable for export to Recap"
)

// Catalog is the part of the catalog API the handler reads from.
type Catalog interface {
	ItemsByBarcode(ctx context.Context, barcode string) ([]sierra.Item, error)
	Bib(ctx context.Context, id string) (*sierra.Bib, error)
	ItemsByBib(ctx context.Context, bibID string) ([]sierra.Item, error)
}

var _ Catalog = (*sierra.Client)(nil)

type Handler struct {
	catalog     Catalog
	policy      *scsb.Policy
	directory   scsb.BarcodeDirectory
	institution string
	reporter    scsb.Reporter
	logger      *slog.Logger
}

// Options configures a Handler. Only Catalog is required.
type Options struct {
	Catalog       Catalog
	Policy        *scsb.Policy
	Directory     scsb.BarcodeDirectory
	InstitutionID string
	Reporter      scsb.Reporter
	Logger        *slog.Logger
}

func New(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		catalog:     opts.Catalog,
		policy:      opts.Policy,
		directory:   opts.Directory,
		institution: opts.InstitutionID,
		reporter:    opts.Reporter,
		logger:      opts.Logger,
	}
}

// HandleBibs converts one bib to SCSB XML. The bib is found either from an
// item barcode, in which case only that item is exported, or from a bib
// number. customerCode is required and is used for items whose barcode is
// not in the directory.
func (h *Handler) HandleBibs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	customerCode := strings.TrimSpace(q.Get("customerCode"))
	barcode := strings.TrimSpace(q.Get("barcode"))
	bnumber := strings.TrimSpace(q.Get("bnumber"))

	if customerCode == "" {
		h.writeError(w, "Missing customerCode parameter", http.StatusBadRequest)
		return
	}
	if barcode == "" && bnumber == "" {
		h.writeError(w, "Missing barcode and bnumber parameters", http.StatusBadRequest)
		return
	}

	var (
		bib   *sierra.Bib
		items []sierra.Item
		err   error
	)
	if barcode != "" {
		bib, items, err = h.fetchByBarcode(r.Context(), barcode)
	} else {
		bib, items, err = h.fetchByBib(r.Context(), BibNumber(bnumber))
	}
	if errors.Is(err, sierra.ErrNotFound) {
		msg := "Bib not found in BibService"
		if barcode != "" {
			msg = msgBarcodeNotFound
		}
		h.writeError(w, msg, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("Catalog lookup failed", "barcode", barcode, "bnumber", bnumber, "err", err)
		h.writeError(w, "Unable to reach the catalog", http.StatusBadGateway)
		return
	}

	conv := scsb.NewConverter(scsb.Options{
		Policy:               h.policy,
		Directory:            h.directory,
		FallbackCustomerCode: customerCode,
		InstitutionID:        h.institution,
		Reporter:             h.reporter,
		Logger:               h.logger,
	})
	exp, err := conv.Convert(sierra.ToRecord(bib, items), sierra.CommittedAnnotations(items))
	if err != nil {
		h.logger.Error("Failed to convert bib", "bib_id", bib.ID, "err", err)
		h.writeError(w, fmt.Sprintf("Unable to convert bib %s", bib.ID), http.StatusInternalServerError)
		return
	}
	if exp.ItemCount == 0 {
		h.writeError(w, msgNoEligibleItems, http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := export.Render(&buf, exp.Tree()); err != nil {
		h.logger.Error("Failed to render bib", "bib_id", exp.BibID, "err", err)
		h.writeError(w, "Unable to render SCSB XML", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Exported bib", "bib_id", exp.BibID, "items", exp.ItemCount, "holdings", len(exp.Holdings))
	w.Header().Set("Content-Type", "application/xml")
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("Unable to write response", "err", err)
	}
}

func (h *Handler) fetchByBarcode(ctx context.Context, barcode string) (*sierra.Bib, []sierra.Item, error) {
	items, err := h.catalog.ItemsByBarcode(ctx, barcode)
	if err != nil {
		return nil, nil, err
	}
	item := items[0]
	if len(item.BibIDs) == 0 {
		return nil, nil, fmt.Errorf("item %s has no bib: %w", item.ID, sierra.ErrNotFound)
	}
	bib, err := h.catalog.Bib(ctx, item.BibIDs[0])
	if err != nil {
		return nil, nil, err
	}
	return bib, []sierra.Item{item}, nil
}

func (h *Handler) fetchByBib(ctx context.Context, bibID string) (*sierra.Bib, []sierra.Item, error) {
	var (
		bib   *sierra.Bib
		items []sierra.Item
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bib, err = h.catalog.Bib(ctx, bibID)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = h.catalog.ItemsByBib(ctx, bibID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return bib, items, nil
}

// BibNumber reduces a bib number such as ".b119953456" or "b11995345" to
// the bare id the catalog API expects.
func BibNumber(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), ".")
	s = strings.TrimPrefix(strings.ToLower(s), "b")
	if len(s) == 9 {
		s = s[:8]
	}
	return s
}
