package milestone

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "Jan 2, 2006"

// formatUSD renders v as "$1,234.56".
func formatUSD(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := "$" + b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

func saleDetail(label string, usd *float64) string {
	if usd == nil {
		return label + " sold"
	}
	return fmt.Sprintf("%s sold for %s", label, formatUSD(*usd))
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
