package marc

import (
	"bytes"
	"fmt"
)

// Encode serializes a record as ISO 2709. Leader positions 0-4 and 12-16
// are recomputed; the rest of the leader is kept as given.
func Encode(rec *Record) ([]byte, error) {
	var directory, data bytes.Buffer
	for _, f := range rec.Fields {
		if len(f.Tag) != 3 {
			return nil, fmt.Errorf("cannot encode tag %q: tags must be three characters", f.Tag)
		}
		start := data.Len()
		if f.IsControl() {
			data.WriteString(f.Value)
		} else {
			data.WriteString(indicator(f.Ind1))
			data.WriteString(indicator(f.Ind2))
			for _, sf := range f.Subfields {
				data.WriteByte(subfieldDelimiter)
				data.WriteString(sf.Code)
				data.WriteString(sf.Value)
			}
		}
		data.WriteByte(fieldTerminator)
		fmt.Fprintf(&directory, "%s%04d%05d", f.Tag, data.Len()-start, start)
	}
	directory.WriteByte(fieldTerminator)

	base := leaderLength + directory.Len()
	total := base + data.Len() + 1

	leader := []byte(rec.Leader)
	if len(leader) != leaderLength {
		leader = []byte("     nam a22     1a 4500")
	}
	copy(leader[0:5], fmt.Sprintf("%05d", total))
	copy(leader[12:17], fmt.Sprintf("%05d", base))

	out := make([]byte, 0, total)
	out = append(out, leader...)
	out = append(out, directory.Bytes()...)
	out = append(out, data.Bytes()...)
	out = append(out, recordTerminator)
	return out, nil
}

// Size returns the encoded size of a record in bytes.
func Size(rec *Record) (int, error) {
	b, err := Encode(rec)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

func indicator(s string) string {
	if s == "" {
		return " "
	}
	return s[:1]
}
