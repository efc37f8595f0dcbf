package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nypl/scsbxml/internal/marc"
	"github.com/nypl/scsbxml/internal/scsb"
)

// BatchResult summarizes one ConvertStream run.
type BatchResult struct {
	Records  int
	Exported int
	Items    int
	Failures []RecordFailure
}

// ConvertStream reads binary MARC from r, converts every record with conv
// and writes one SCSB XML document to w. Records that cannot be decoded or
// converted are recorded in the result and skipped. Records with no exportable items are
// still written, so the output holds one bibRecord per input record.
// A read error stops the run.
func ConvertStream(ctx context.Context, r io.Reader, conv *scsb.Converter, w io.Writer) (*BatchResult, error) {
	res := &BatchResult{}
	xw, err := NewWriter(w)
	if err != nil {
		return res, err
	}

	rd := marc.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var recErr *marc.RecordError
		if errors.As(err, &recErr) {
			res.Records++
			slog.Warn("Skipping undecodable record", "index", res.Records, "err", recErr.Err)
			res.Failures = append(res.Failures, RecordFailure{Index: res.Records, Error: recErr.Err.Error()})
			continue
		}
		if err != nil {
			return res, fmt.Errorf("failed to read record %d: %w", res.Records+1, err)
		}
		res.Records++

		exp, err := conv.Convert(rec, nil)
		if err != nil {
			bibID, _ := scsb.ExtractBibID(rec)
			slog.Warn("Skipping record", "index", res.Records, "bib_id", bibID, "err", err)
			res.Failures = append(res.Failures, RecordFailure{Index: res.Records, BibID: bibID, Error: err.Error()})
			continue
		}
		if err := xw.Write(exp.Tree()); err != nil {
			return res, err
		}
		res.Exported++
		res.Items += exp.ItemCount

		if res.Records%1000 == 0 {
			slog.Info("Conversion progress", "records", res.Records, "items", res.Items)
		}
	}

	if err := xw.Close(); err != nil {
		return res, err
	}
	slog.Debug("Conversion finished", "records", res.Records, "exported", res.Exported, "failures", len(res.Failures))
	return res, nil
}
