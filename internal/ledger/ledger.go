// Package ledger defines the pluggable asset-transfer medium the
// matching engine escrows through. The engine only ever calls Debit and
// Credit; everything about how balances are actually held — in memory,
// in a database, via on-chain token transfers — lives behind this
// interface.
package ledger

import "clobengine/internal/domain"

// Ledger moves units of an asset into and out of the engine's custody.
// Implementations must treat Debit/Credit as atomic with respect to
// concurrent calls for the same (account, asset).
type Ledger interface {
	// Debit moves units of asset from account into the caller's custody.
	// It fails with an error wrapping domain.ErrInsufficientBalance if
	// the account's balance is insufficient.
	Debit(account domain.Account, asset domain.Asset, units uint64) error

	// Credit moves units of asset from the caller's custody to account.
	// Infallible under well-formed inputs.
	Credit(account domain.Account, asset domain.Asset, units uint64) error

	// Decimals returns the asset's smallest-unit precision.
	Decimals(asset domain.Asset) uint8
}
