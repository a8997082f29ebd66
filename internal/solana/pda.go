package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	sol "github.com/gagliardetto/solana-go"
)

const (
	maxSeedLength = 32
	maxSeeds      = 16
	pdaMarker     = "ProgramDerivedAddress"
)

// ErrNoViableBump is returned when no bump seed yields an off-curve address.
var ErrNoViableBump = errors.New("unable to find a viable program address bump seed")

// CreateProgramAddress derives a program address from seeds that already include the bump.
func CreateProgramAddress(seeds [][]byte, programID sol.PublicKey) (sol.PublicKey, error) {
	if len(seeds) > maxSeeds {
		return sol.PublicKey{}, fmt.Errorf("too many seeds: %d", len(seeds))
	}

	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > maxSeedLength {
			return sol.PublicKey{}, fmt.Errorf("seed length %d exceeds %d", len(seed), maxSeedLength)
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var out sol.PublicKey
	copy(out[:], h.Sum(nil))
	if isOnCurve(out[:]) {
		return sol.PublicKey{}, errors.New("derived address is on the ed25519 curve")
	}
	return out, nil
}

// FindProgramAddress searches bumps from 255 down for the first off-curve address.
func FindProgramAddress(seeds [][]byte, programID sol.PublicKey) (sol.PublicKey, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
	}
	return sol.PublicKey{}, 0, ErrNoViableBump
}

// FindAssociatedTokenAddress returns the associated token account of wallet for mint
// under the given token program.
func FindAssociatedTokenAddress(wallet, mint, tokenProgram sol.PublicKey) (sol.PublicKey, error) {
	addr, _, err := FindProgramAddress(
		[][]byte{wallet[:], tokenProgram[:], mint[:]},
		sol.SPLAssociatedTokenAccountProgramID,
	)
	return addr, err
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
