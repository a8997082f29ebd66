package discovery

import "solana-exit-engine/internal/solana"

// WSOL is the wrapped SOL mint.
const WSOL = "So11111111111111111111111111111111111111112"

// DefaultMint is used when no post-trade balance identifies the traded token.
const DefaultMint = "2ivzYvjnKqA4X3dVvPKr7bctGpbxwrXbbxm44TJCpump"

// DefaultDecimals is assumed when the traded mint's decimals are not in the balances.
const DefaultDecimals uint8 = 6

// resolveMint returns the traded mint from post-trade balances. The first entry wins
// unless it is WSOL, in which case the second entry is used. With nothing usable the
// fallback is returned.
func resolveMint(post []solana.TokenBalance, fallback string) string {
	if len(post) == 0 {
		return fallback
	}
	mint := post[0].Mint
	if mint == WSOL {
		mint = ""
		if len(post) > 1 {
			mint = post[1].Mint
		}
	}
	if mint == "" {
		return fallback
	}
	return mint
}

// mintDecimals looks up decimals for mint in the balance snapshots.
func mintDecimals(meta *solana.TransactionMeta, mint string) uint8 {
	for _, set := range [][]solana.TokenBalance{meta.PostTokenBalances, meta.PreTokenBalances} {
		for _, b := range set {
			if b.Mint == mint {
				return b.Decimals
			}
		}
	}
	return DefaultDecimals
}
