package alert

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFilter is returned by ParseFilter for values outside the filter set.
var ErrInvalidFilter = errors.New("invalid filter")

// Filter scopes both the alerts query and the rendered rows.
// It is either FilterAll or the wire name of a known signal.
type Filter string

const (
	FilterAll          Filter = "all"
	FilterPrime        Filter = "prime"
	FilterSharpshooter Filter = "sharpshooter"
	FilterOpportunist  Filter = "opportunist"
	FilterSell         Filter = "sell"
)

// Filters returns every filter in control order.
func Filters() []Filter {
	return []Filter{FilterAll, FilterPrime, FilterSharpshooter, FilterOpportunist, FilterSell}
}

// ParseFilter parses a filter value. Empty means all.
func ParseFilter(v string) (Filter, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return FilterAll, nil
	}
	for _, f := range Filters() {
		if string(f) == v {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFilter, v)
}

// Matches reports whether an alert with the given signal passes the filter.
func (f Filter) Matches(s Signal) bool {
	return f == FilterAll || string(f) == s.String()
}

// Label is the human readable name used on filter controls.
func (f Filter) Label() string {
	if f == FilterAll {
		return "All"
	}
	return ParseSignal(string(f)).Badge().Label
}
