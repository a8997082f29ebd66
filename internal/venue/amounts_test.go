package venue

import "testing"

func TestSellAmount(t *testing.T) {
	tests := []struct {
		balance  uint64
		fraction float64
		want     uint64
	}{
		{1000, 1.0, 1000},
		{1000, 0.5, 500},
		{1001, 0.5, 500},
		{1000, 0, 0},
		{1000, -1, 0},
		{1000, 1.5, 1000},
		{0, 0.5, 0},
		{^uint64(0), 1.0, ^uint64(0)},
	}

	for _, tt := range tests {
		if got := SellAmount(tt.balance, tt.fraction); got != tt.want {
			t.Errorf("SellAmount(%d, %v) = %d, want %d", tt.balance, tt.fraction, got, tt.want)
		}
	}
}

func TestMinimumOut(t *testing.T) {
	tests := []struct {
		name                string
		in, tokens, sol     uint64
		feeBps, slippageBps uint64
		want                uint64
	}{
		{"no fee no slippage", 1000, 1_000_000, 1_000_000, 0, 0, 999},
		{"fee and slippage", 1000, 1_000_000, 1_000_000, 25, 500, 946},
		{"zero amount", 0, 1_000_000, 1_000_000, 25, 500, 0},
		{"zero reserves", 1000, 0, 1_000_000, 25, 500, 0},
		{"full slippage", 1000, 1_000_000, 1_000_000, 0, 10_000, 0},
		{"large values", 1_000_000_000_000, 1_000_000_000_000_000, 30_000_000_000, 0, 0, 29_970_029},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinimumOut(tt.in, tt.tokens, tt.sol, tt.feeBps, tt.slippageBps)
			if got != tt.want {
				t.Errorf("MinimumOut = %d, want %d", got, tt.want)
			}
		})
	}
}
