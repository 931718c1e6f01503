package helper

import (
	"fmt"
	"strconv"
	"strings"
)

// NormGranularity приводит таймфрейм к виду OANDA: 15m -> M15, 1h -> H1.
func NormGranularity(raw string) string {
	s := strings.TrimSpace(strings.ToUpper(raw))
	switch s {
	case "1M", "M1":
		return "M1"
	case "5M", "M5":
		return "M5"
	case "15M", "M15":
		return "M15"
	case "30M", "M30":
		return "M30"
	case "60M", "1H", "H1":
		return "H1"
	case "4H", "H4":
		return "H4"
	case "1D", "D":
		return "D"
	default:
		return s
	}
}

// ParseClock разбирает "HH:MM".
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("clock %q: want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("clock %q: bad hour", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("clock %q: bad minute", s)
	}
	return hour, minute, nil
}

func FormatMoney(amount float64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	whole := strconv.FormatFloat(amount, 'f', 2, 64)
	intPart, frac, _ := strings.Cut(whole, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}
