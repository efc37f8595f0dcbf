// Package export renders converted records as SCSB XML and delivers the
// documents to a file system or S3.
package export

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/nypl/scsbxml/internal/scsb"
)

const rootElement = "bibRecords"

// Writer streams bibRecord trees into a single bibRecords document.
type Writer struct {
	enc    *xml.Encoder
	count  int
	closed bool
}

// NewWriter writes the XML declaration and opens the bibRecords element.
func NewWriter(w io.Writer) (*Writer, error) {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return nil, fmt.Errorf("failed to write xml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	if err := enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: rootElement}}); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", rootElement, err)
	}
	return &Writer{enc: enc}, nil
}

// Write appends one record tree.
func (w *Writer) Write(tree *scsb.Node) error {
	if w.closed {
		return fmt.Errorf("write after close")
	}
	if err := encodeNode(w.enc, tree); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	return w.count
}

// Close ends the document and flushes it.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: rootElement}}); err != nil {
		return fmt.Errorf("failed to close %s: %w", rootElement, err)
	}
	return w.enc.Flush()
}

// Render writes a complete document holding the given record trees.
func Render(w io.Writer, trees ...*scsb.Node) error {
	xw, err := NewWriter(w)
	if err != nil {
		return err
	}
	for _, tree := range trees {
		if err := xw.Write(tree); err != nil {
			return err
		}
	}
	return xw.Close()
}

func encodeNode(enc *xml.Encoder, n *scsb.Node) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Name}}
	for _, a := range n.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if len(n.Children) == 0 {
		if n.Value != "" {
			if err := enc.EncodeToken(xml.CharData(n.Value)); err != nil {
				return err
			}
		}
	} else {
		for _, c := range n.Children {
			if err := encodeNode(enc, c); err != nil {
				return err
			}
		}
	}
	return enc.EncodeToken(start.End())
}
