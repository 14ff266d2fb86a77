package calc

import "strings"

// Group inserts sep between thousands in the integer part of a display
// numeral. Fractional digits and a trailing point are kept as typed, and
// the error marker passes through.
func Group(numeral, sep string) string {
	if numeral == ErrorMarker || sep == "" {
		return numeral
	}

	sign := ""
	if strings.HasPrefix(numeral, "-") {
		sign = "-"
		numeral = numeral[1:]
	}

	intPart, frac, hasPoint := strings.Cut(numeral, ".")
	grouped := groupDigits(intPart, sep)
	if hasPoint {
		return sign + grouped + "." + frac
	}
	return sign + grouped
}

func groupDigits(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
