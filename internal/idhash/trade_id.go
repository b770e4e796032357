// Package idhash computes deterministic identifiers. Deterministic IDs make
// trade requests idempotent: replaying the same request yields the same ID
// and therefore hits the existing ledger record instead of creating a new one.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(wallet|token_address|side|amount|client_key)
// Returns hex-encoded hash (64 characters).
//
// clientKey is the caller-supplied idempotency key; two requests that differ
// only in clientKey are distinct trades even for the same token and amount.
func ComputeTradeID(wallet, tokenAddress, side string, amount float64, clientKey string) string {
	data := fmt.Sprintf("%s|%s|%s|%.9f|%s",
		wallet,
		tokenAddress,
		side,
		amount,
		clientKey,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
