package alert

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatPrice renders a price as a two-decimal dollar amount.
func FormatPrice(p float64) string {
	return fmt.Sprintf("$%.2f", p)
}

// FormatConfidence renders a confidence as a rounded integer percent.
func FormatConfidence(c float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(c)))
}

// FormatTime renders the time of day in loc. Zero times render empty.
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("3:04:05 PM")
}

// SplitTriggers splits a comma-joined trigger list into trimmed, non-empty tokens.
func SplitTriggers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParseQuantity reads a trade quantity from user input.
// Anything that is not a positive integer becomes 1.
func ParseQuantity(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
