package domain

import (
	"fmt"
	"strings"
)

// FormatAmount renders an amount with thousand separators and two fraction
// digits, e.g. 1800 -> "1,800.00". Display only; stored prices keep the raw
// arithmetic result.
func FormatAmount(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	s := fmt.Sprintf("%.2f", amount)
	intPart, fracPart, _ := strings.Cut(s, ".")

	var out strings.Builder
	out.WriteString(sign)
	for i, c := range intPart {
		if i != 0 && (len(intPart)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}
	out.WriteByte('.')
	out.WriteString(fracPart)
	return out.String()
}
