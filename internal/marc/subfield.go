package marc

// SubfieldMap groups a field's subfield values by code. Values for a
// repeated code keep the order in which they were encountered.
type SubfieldMap map[string][]string

// DecodeSubfields turns an ordered subfield list into a SubfieldMap.
func DecodeSubfields(subfields []Subfield) SubfieldMap {
	m := make(SubfieldMap, len(subfields))
	for _, sf := range subfields {
		m[sf.Code] = append(m[sf.Code], sf.Value)
	}
	return m
}

// First returns the first value recorded for code.
func (m SubfieldMap) First(code string) (string, bool) {
	values := m[code]
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// Has reports whether code has at least one value.
func (m SubfieldMap) Has(code string) bool {
	return len(m[code]) > 0
}

// Firsts collapses the map to first-value-per-code.
func (m SubfieldMap) Firsts() map[string]string {
	out := make(map[string]string, len(m))
	for code, values := range m {
		if len(values) > 0 {
			out[code] = values[0]
		}
	}
	return out
}
