// Package solutil provides small Solana address helpers shared by the
// query service and the trade ledger.
package solutil

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidAddress reports whether s is a syntactically valid Solana address:
// base58-decodable to exactly 32 bytes. Mint addresses may be program
// derived, so no curve check is applied here.
func ValidAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}

// OnCurve reports whether s decodes to a point on the ed25519 curve.
// Keypair-backed wallet addresses are on-curve; PDAs are not, so this
// distinguishes a user wallet from a program account.
func OnCurve(s string) bool {
	decoded, err := base58.Decode(s)
	if err != nil || len(decoded) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}

// UsableWallet reports whether s may identify a session wallet. Plain
// session labels pass; an address-shaped value must be an on-curve keypair
// address, since a PDA cannot sign trades.
func UsableWallet(s string) bool {
	if !ValidAddress(s) {
		return true
	}
	return OnCurve(s)
}
