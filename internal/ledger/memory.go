package ledger

import (
	"fmt"
	"sync"

	"clobengine/internal/domain"
)

// balance is one account's holding of one asset, grounded on the
// teacher's domain.Broker: a mutex guarding a single mutable total.
type balance struct {
	mu    sync.Mutex
	total uint64
}

// key identifies one (account, asset) balance.
type key struct {
	account domain.Account
	assetID string
}

// MemoryLedger is an in-memory reference implementation of Ledger,
// generalized from the teacher's domain.Broker (cash balance plus one
// symbol's holdings) into an arbitrary account/asset balance table.
// Intended for tests and for standalone demos; a production deployment
// plugs in a real token-transfer or database-backed Ledger instead.
type MemoryLedger struct {
	mu       sync.RWMutex
	balances map[key]*balance
	decimals map[string]uint8
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[key]*balance),
		decimals: make(map[string]uint8),
	}
}

// Seed credits an account's starting balance directly, bypassing escrow
// accounting. Used by tests and by bootstrap code to fund accounts.
func (l *MemoryLedger) Seed(account domain.Account, asset domain.Asset, units uint64) {
	b := l.balanceFor(account, asset)
	b.mu.Lock()
	b.total += units
	b.mu.Unlock()
}

// Balance returns an account's current balance of asset.
func (l *MemoryLedger) Balance(account domain.Account, asset domain.Asset) uint64 {
	b := l.balanceFor(account, asset)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

func (l *MemoryLedger) balanceFor(account domain.Account, asset domain.Asset) *balance {
	k := key{account: account, assetID: asset.ID}

	l.mu.RLock()
	b, ok := l.balances[k]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok = l.balances[k]; ok {
		return b
	}
	b = &balance{}
	l.balances[k] = b
	l.decimals[asset.ID] = asset.Decimals
	return b
}

// Debit implements Ledger.
func (l *MemoryLedger) Debit(account domain.Account, asset domain.Asset, units uint64) error {
	if units == 0 {
		return nil
	}
	b := l.balanceFor(account, asset)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.total < units {
		return &domain.LedgerError{Inner: fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientBalance, b.total, units)}
	}
	b.total -= units
	return nil
}

// Credit implements Ledger.
func (l *MemoryLedger) Credit(account domain.Account, asset domain.Asset, units uint64) error {
	if units == 0 {
		return nil
	}
	b := l.balanceFor(account, asset)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total += units
	return nil
}

// Decimals implements Ledger.
func (l *MemoryLedger) Decimals(asset domain.Asset) uint8 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if d, ok := l.decimals[asset.ID]; ok {
		return d
	}
	return asset.Decimals
}
