package entity

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PnLWindow is the time window a PnL figure is reported for.
type PnLWindow string

const (
	PnLWindowDay   PnLWindow = "DAY"
	PnLWindowWeek  PnLWindow = "WEEK"
	PnLWindowMonth PnLWindow = "MONTH"
	PnLWindowYear  PnLWindow = "YEAR"
	PnLWindowAll   PnLWindow = "ALL"
)

// PnLWindows lists every window in display order.
var PnLWindows = []PnLWindow{PnLWindowDay, PnLWindowWeek, PnLWindowMonth, PnLWindowYear, PnLWindowAll}

// ParsePnLWindow accepts a window name in any case.
func ParsePnLWindow(s string) (PnLWindow, error) {
	w := PnLWindow(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range PnLWindows {
		if w == known {
			return w, nil
		}
	}
	return "", &ValidationError{Field: "window", Reason: fmt.Sprintf("unknown pnl window %q", s)}
}

// PnLResult is the profit and loss for one window.
type PnLResult struct {
	Window     PnLWindow       `json:"window"`
	Unrealized decimal.Decimal `json:"unrealized"`
	Realized   decimal.Decimal `json:"realized"`
	Total      decimal.Decimal `json:"total"`
	TotalPct   decimal.Decimal `json:"totalPct"`
}
