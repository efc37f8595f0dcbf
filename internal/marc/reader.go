package marc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	recordTerminator   = 0x1d
	fieldTerminator    = 0x1e
	subfieldDelimiter  = 0x1f
	leaderLength       = 24
	directoryEntrySize = 12
)

// ErrMalformed is returned when a binary record cannot be parsed.
var ErrMalformed = errors.New("malformed MARC record")

// Reader reads ISO 2709 records one at a time.
type Reader struct {
	r     *bufio.Reader
	count int
}

// NewReader creates a Reader over a binary MARC stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Count returns the number of records read so far, including records that
// failed to decode.
func (rd *Reader) Count() int {
	return rd.count
}

// Next returns the next record, or io.EOF when the stream is exhausted.
func (rd *Reader) Next() (*Record, error) {
	// skip stray whitespace between records
	for {
		b, err := rd.r.Peek(1)
		if err != nil {
			return nil, err
		}
		if b[0] != '\n' && b[0] != '\r' && b[0] != ' ' {
			break
		}
		if _, err := rd.r.ReadByte(); err != nil {
			return nil, err
		}
	}

	head := make([]byte, 5)
	if _, err := io.ReadFull(rd.r, head); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated record length", ErrMalformed)
		}
		return nil, err
	}
	length, ok := digits(head)
	if !ok || length < leaderLength+1 {
		return nil, fmt.Errorf("%w: bad record length %q", ErrMalformed, head)
	}

	raw := make([]byte, length)
	copy(raw, head)
	if _, err := io.ReadFull(rd.r, raw[5:]); err != nil {
		return nil, fmt.Errorf("%w: record shorter than declared length %d", ErrMalformed, length)
	}

	rd.count++
	rec, err := Decode(raw)
	if err != nil {
		return nil, &RecordError{Index: rd.count, Err: err}
	}
	return rec, nil
}

// RecordError reports a record that was read in full but could not be
// decoded. The Reader is positioned at the following record, so reading
// can continue.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Decode parses a single ISO 2709 record.
func Decode(raw []byte) (*Record, error) {
	if len(raw) < leaderLength+1 {
		return nil, fmt.Errorf("%w: record too short", ErrMalformed)
	}
	leader := raw[:leaderLength]
	base, ok := digits(leader[12:17])
	if !ok || base <= leaderLength || base > len(raw) {
		return nil, fmt.Errorf("%w: bad base address %q", ErrMalformed, leader[12:17])
	}

	directory := raw[leaderLength : base-1]
	if len(directory)%directoryEntrySize != 0 {
		return nil, fmt.Errorf("%w: directory length %d is not a multiple of %d", ErrMalformed, len(directory), directoryEntrySize)
	}

	rec := &Record{Leader: string(leader)}
	data := raw[base:]
	for i := 0; i < len(directory); i += directoryEntrySize {
		entry := directory[i : i+directoryEntrySize]
		tag := string(entry[0:3])
		size, ok := digits(entry[3:7])
		if !ok {
			return nil, fmt.Errorf("%w: bad field length for %s", ErrMalformed, tag)
		}
		start, ok := digits(entry[7:12])
		if !ok {
			return nil, fmt.Errorf("%w: bad field offset for %s", ErrMalformed, tag)
		}
		if start+size > len(data) {
			return nil, fmt.Errorf("%w: field %s overruns record", ErrMalformed, tag)
		}
		body := bytes.TrimRight(data[start:start+size], string([]byte{fieldTerminator, recordTerminator}))
		rec.Fields = append(rec.Fields, decodeField(tag, body))
	}
	return rec, nil
}

// digits parses an unsigned decimal number. Signs and spaces are rejected.
func digits(b []byte) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func decodeField(tag string, body []byte) Field {
	if len(tag) == 3 && tag[0] == '0' && tag[1] == '0' {
		return Field{Tag: tag, Value: string(body)}
	}
	f := Field{Tag: tag, Ind1: " ", Ind2: " "}
	parts := bytes.Split(body, []byte{subfieldDelimiter})
	if ind := parts[0]; len(ind) >= 2 {
		f.Ind1, f.Ind2 = string(ind[0]), string(ind[1])
	}
	for _, p := range parts[1:] {
		if len(p) == 0 {
			continue
		}
		f.Subfields = append(f.Subfields, Subfield{Code: string(p[0]), Value: string(p[1:])})
	}
	return f
}
