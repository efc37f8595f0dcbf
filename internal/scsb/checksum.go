package scsb

import "strings"

// CheckDigit appends the catalog's mod-11 check digit to a record id such
// as ".i123" or ".b11995345". The digits are weighted 2, 3, 4, ... from
// the right; a remainder of 10 is written as "x".
func CheckDigit(id string) string {
	digits := strings.TrimLeftFunc(id, func(r rune) bool { return r < '0' || r > '9' })
	sum := 0
	for i := 0; i < len(digits); i++ {
		d := digits[len(digits)-1-i]
		if d < '0' || d > '9' {
			continue
		}
		sum += int(d-'0') * (i + 2)
	}
	r := sum % 11
	if r == 10 {
		return id + "x"
	}
	return id + string(rune('0'+r))
}
