package domain

// Asset is the identity of a tradeable asset: an opaque identifier plus
// the number of fractional digits in its smallest unit. Asset carries no
// balance — balances live in the ledger, keyed by (Account, Asset.ID).
type Asset struct {
	ID       string
	Decimals uint8
}

// Account is an opaque trader identifier. The engine trusts whatever the
// caller supplies; authenticating it is out of scope.
type Account string

// Divisor returns 10^Decimals, the scaling factor spec.md §4.3 calls D.
func (a Asset) Divisor() uint64 {
	d := uint64(1)
	for i := uint8(0); i < a.Decimals; i++ {
		d *= 10
	}
	return d
}

// Equal reports whether two assets share the same identifier. Decimals is
// metadata about the identifier, not part of its identity.
func (a Asset) Equal(other Asset) bool {
	return a.ID == other.ID
}
