package persist

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"clobengine/internal/domain"
)

// Batch accumulates persisted writes for a single MatchingEngine
// operation and commits them atomically, or not at all. This is what
// ExecuteMarket's revert semantics (spec.md §4.6/§7) are built on for
// the persisted side of state: the engine computes the entire market
// sweep's plan before mutating anything, and only after the
// min_received check passes does it apply the plan to the in-memory
// book and stage the resulting writes here; the Batch is Commit()ed only
// then. On a failed plan nothing is ever staged, so there's nothing to
// roll back. Grounded on uhyunpark-hyperlicked's
// account/store.go BatchWrite — same Set-into-batch-then-Commit shape,
// generalized from account/position/order/trade to this engine's key
// layout.
type Batch struct {
	batch *pebble.Batch
}

// NewBatch starts a new batch against store.
func (s *Store) NewBatch() *Batch {
	return &Batch{batch: s.db.NewBatch()}
}

// SaveOrder stages an order write.
func (b *Batch) SaveOrder(pair string, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	return b.batch.Set(orderKey(pair, order.ID), data, nil)
}

// SaveLevel stages a level write and its index presence marker.
func (b *Batch) SaveLevel(pair string, side domain.Side, level PersistedLevel) error {
	data, err := json.Marshal(level)
	if err != nil {
		return fmt.Errorf("marshal level: %w", err)
	}
	if err := b.batch.Set(levelKey(pair, string(side), level.Price), data, nil); err != nil {
		return err
	}
	return b.batch.Set(indexKey(pair, string(side), level.Price), []byte{1}, nil)
}

// DeleteLevel stages removal of a drained level.
func (b *Batch) DeleteLevel(pair string, side domain.Side, price uint64) error {
	if err := b.batch.Delete(levelKey(pair, string(side), price), nil); err != nil {
		return err
	}
	return b.batch.Delete(indexKey(pair, string(side), price), nil)
}

// SaveLastTradePrice stages the pair's last-trade-price counter update.
func (b *Batch) SaveLastTradePrice(pair string, price uint64) error {
	return b.batch.Set(lastTradePriceCounterKey(pair), counterBytes(price), nil)
}

// Commit writes every staged operation to pebble atomically.
func (b *Batch) Commit() error {
	return b.batch.Commit(pebble.Sync)
}

// Discard abandons the batch without writing anything.
func (b *Batch) Discard() error {
	return b.batch.Close()
}
