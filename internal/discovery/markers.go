package discovery

import "strings"

// Instruction log markers emitted by venue programs.
const (
	markerBuy  = "Instruction: Buy"
	markerSell = "Instruction: Sell"
	markerSwap = "Instruction: Swap"
)

// direction is the trade side implied by log markers.
type direction struct {
	isBuy     bool
	ambiguous bool
}

// directionFromLogs resolves the trade side from instruction markers.
// Sell alone is a sell and Buy alone is a buy. Any other combination,
// including Swap and no marker at all, is reported as an ambiguous buy.
func directionFromLogs(logs []string) direction {
	var buy, sell, swap bool
	for _, line := range logs {
		switch {
		case strings.Contains(line, markerBuy):
			buy = true
		case strings.Contains(line, markerSell):
			sell = true
		case strings.Contains(line, markerSwap):
			swap = true
		}
	}

	switch {
	case sell && !buy && !swap:
		return direction{isBuy: false}
	case buy && !sell && !swap:
		return direction{isBuy: true}
	default:
		return direction{isBuy: true, ambiguous: true}
	}
}
