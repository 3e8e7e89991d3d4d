package app

import (
	"alertdash/internal/alert"
	"net/url"
	"strings"
	"time"
)

// RowView is one rendered alert row.
type RowView struct {
	ID           string       `json:"id"`
	Symbol       string       `json:"symbol"`
	Name         string       `json:"name,omitempty"`
	Signal       string       `json:"signal"`
	Badge        alert.Badge  `json:"badge"`
	Price        string       `json:"price"`
	VWAP         string       `json:"vwap,omitempty"`
	Confidence   string       `json:"confidence"`
	Time         string       `json:"time"`
	Triggers     []string     `json:"triggers"`
	SparklineURL string       `json:"sparkline_url"`
	ChartURL     string       `json:"chart_url,omitempty"`
	Buy          BuyControl   `json:"buy"`
	Clear        ClearControl `json:"clear"`
}

// BuyControl carries what the buy button submits.
type BuyControl struct {
	Symbol     string `json:"symbol"`
	DefaultQty int    `json:"default_qty"`
}

// ClearControl carries what the clear button submits.
type ClearControl struct {
	ID string `json:"id"`
}

// RenderOptions tunes presentation without touching row selection.
type RenderOptions struct {
	// Location for row times. Nil means time.Local.
	Location *time.Location
	// AssetBase prefixes sparkline URLs, e.g. the backend origin. Empty keeps them relative.
	AssetBase string
}

// Render maps the alerts matching filter to rows, in source order.
func Render(alerts []alert.Alert, filter alert.Filter) []RowView {
	return RenderWith(alerts, filter, RenderOptions{})
}

// RenderWith is Render with explicit presentation options.
func RenderWith(alerts []alert.Alert, filter alert.Filter, opts RenderOptions) []RowView {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	base := strings.TrimRight(opts.AssetBase, "/")

	rows := make([]RowView, 0, len(alerts))
	for _, a := range alerts {
		if !filter.Matches(a.Signal) {
			continue
		}
		rows = append(rows, renderRow(a, loc, base))
	}
	return rows
}

func renderRow(a alert.Alert, loc *time.Location, base string) RowView {
	row := RowView{
		ID:           a.ID,
		Symbol:       a.Symbol,
		Name:         a.Name,
		Signal:       a.Signal.String(),
		Badge:        a.Signal.Badge(),
		Price:        alert.FormatPrice(a.Price),
		Confidence:   alert.FormatConfidence(a.Confidence),
		Time:         alert.FormatTime(a.Timestamp, loc),
		Triggers:     append([]string{}, a.Triggers...),
		SparklineURL: base + "/api/alerts/" + url.PathEscape(a.ID) + "/sparkline.svg",
		ChartURL:     a.ChartURL,
		Buy:          BuyControl{Symbol: a.Symbol, DefaultQty: 1},
		Clear:        ClearControl{ID: a.ID},
	}
	if a.HasVWAP {
		row.VWAP = alert.FormatPrice(a.VWAP)
	}
	return row
}
