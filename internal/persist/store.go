package persist

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cockroachdb/pebble"

	"clobengine/internal/domain"
)

// Store is a pebble-backed mirror of one or more pairs' persisted state,
// following the key layout spec.md §6 names (keys.go lists the concrete
// keys and the one place they differ from it). Grounded on
// uhyunpark-hyperlicked/pkg/app/core/account/store.go's marshal-to-JSON,
// pebble.Set/Get-with-prefix-iteration style. The MatchingEngine and
// PairRegistry are the sources of truth in memory; Store exists so a
// process can resume from disk after a restart, and is entirely optional
// — engines work with no Store configured at all.
type Store struct {
	db *pebble.DB
}

// PersistedLevel is the on-disk projection of a PriceLevel: just enough
// to rebuild the FIFO and liquidity total on load.
type PersistedLevel struct {
	Price          uint64   `json:"price"`
	OrderIDs       []uint64 `json:"order_ids"`
	TotalLiquidity uint64   `json:"total_liquidity"`
}

// PersistedAsset is the on-disk projection of a domain.Asset.
type PersistedAsset struct {
	ID       string `json:"id"`
	Decimals uint8  `json:"decimals"`
}

// PersistedHandle is the on-disk projection of one registered pair: the
// canonical key it was filed under, and the base/quote assets in the
// caller's original role assignment.
type PersistedHandle struct {
	Key   string         `json:"key"`
	Base  PersistedAsset `json:"base"`
	Quote PersistedAsset `json:"quote"`
}

// Open opens (or creates) a pebble database at dbPath.
func Open(dbPath string) (*Store, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(64 << 20),
		MemTableSize: 32 << 20,
	}
	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble db at %s: %w", dbPath, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveOrder persists one order under orders/<pair>/<id>.
func (s *Store) SaveOrder(pair string, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	return s.db.Set(orderKey(pair, order.ID), data, pebble.Sync)
}

// LoadOrder loads one order, or nil if it was never persisted.
func (s *Store) LoadOrder(pair string, id uint64) (*domain.Order, error) {
	data, closer, err := s.db.Get(orderKey(pair, id))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	defer closer.Close()

	var order domain.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &order, nil
}

// LoadAllOrders loads every order persisted for pair, in key order
// (which is id order, since orderKey zero-pads the id).
func (s *Store) LoadAllOrders(pair string) ([]*domain.Order, error) {
	prefix := orderPrefix(pair)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var orders []*domain.Order
	for iter.First(); iter.Valid(); iter.Next() {
		var order domain.Order
		if err := json.Unmarshal(iter.Value(), &order); err != nil {
			continue
		}
		orders = append(orders, &order)
	}
	return orders, nil
}

// SaveLevel persists one side's level at price under
// levels/<pair>/<side>/<price>, and marks its presence under
// index/<pair>/<side>/<price>.
func (s *Store) SaveLevel(pair string, side domain.Side, level PersistedLevel) error {
	data, err := json.Marshal(level)
	if err != nil {
		return fmt.Errorf("marshal level: %w", err)
	}
	if err := s.db.Set(levelKey(pair, string(side), level.Price), data, pebble.Sync); err != nil {
		return err
	}
	return s.db.Set(indexKey(pair, string(side), level.Price), []byte{1}, pebble.Sync)
}

// DeleteLevel removes a fully-drained level and its index entry.
func (s *Store) DeleteLevel(pair string, side domain.Side, price uint64) error {
	if err := s.db.Delete(levelKey(pair, string(side), price), pebble.Sync); err != nil {
		return err
	}
	return s.db.Delete(indexKey(pair, string(side), price), pebble.Sync)
}

// LoadLevels loads every persisted level for pair on side.
func (s *Store) LoadLevels(pair string, side domain.Side) ([]PersistedLevel, error) {
	prefix := levelPrefix(pair, string(side))
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var levels []PersistedLevel
	for iter.First(); iter.Valid(); iter.Next() {
		var level PersistedLevel
		if err := json.Unmarshal(iter.Value(), &level); err != nil {
			continue
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// SaveOrderIDCounter persists the pair's next-order-id counter.
func (s *Store) SaveOrderIDCounter(pair string, next uint64) error {
	return s.db.Set(orderIDCounterKey(pair), counterBytes(next), pebble.Sync)
}

// LoadOrderIDCounter loads the pair's next-order-id counter, 0 if it was
// never persisted.
func (s *Store) LoadOrderIDCounter(pair string) (uint64, error) {
	return s.loadCounter(orderIDCounterKey(pair))
}

// SaveLastTradePrice persists the pair's last trade price.
func (s *Store) SaveLastTradePrice(pair string, price uint64) error {
	return s.db.Set(lastTradePriceCounterKey(pair), counterBytes(price), pebble.Sync)
}

// LoadLastTradePrice loads the pair's last trade price, 0 if none has
// ever been persisted.
func (s *Store) LoadLastTradePrice(pair string) (uint64, error) {
	return s.loadCounter(lastTradePriceCounterKey(pair))
}

func (s *Store) loadCounter(key []byte) (uint64, error) {
	data, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get counter: %w", err)
	}
	defer closer.Close()
	return parseCounterBytes(data)
}

// SaveRegistryHandle persists that canonical key maps to an existing
// pair and the base/quote assets it was created with, under
// registry/handle/<key>.
func (s *Store) SaveRegistryHandle(key string, base, quote domain.Asset) error {
	handle := PersistedHandle{
		Key:   key,
		Base:  PersistedAsset{ID: base.ID, Decimals: base.Decimals},
		Quote: PersistedAsset{ID: quote.ID, Decimals: quote.Decimals},
	}
	data, err := json.Marshal(handle)
	if err != nil {
		return fmt.Errorf("marshal registry handle: %w", err)
	}
	return s.db.Set(registryHandleKey(key), data, pebble.Sync)
}

// LoadRegistryHandles loads every persisted pair registration.
func (s *Store) LoadRegistryHandles() ([]PersistedHandle, error) {
	prefix := registryHandlePrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var handles []PersistedHandle
	for iter.First(); iter.Valid(); iter.Next() {
		var handle PersistedHandle
		if err := json.Unmarshal(iter.Value(), &handle); err != nil {
			continue
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

// SaveWhitelistEntry persists that asset is a permitted quote asset,
// including the decimals it was whitelisted with.
func (s *Store) SaveWhitelistEntry(asset domain.Asset) error {
	data, err := json.Marshal(PersistedAsset{ID: asset.ID, Decimals: asset.Decimals})
	if err != nil {
		return fmt.Errorf("marshal whitelist entry: %w", err)
	}
	return s.db.Set(whitelistKey(asset.ID), data, pebble.Sync)
}

// LoadWhitelist loads every whitelisted quote asset.
func (s *Store) LoadWhitelist() ([]domain.Asset, error) {
	prefix := whitelistPrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var assets []domain.Asset
	for iter.First(); iter.Valid(); iter.Next() {
		var pa PersistedAsset
		if err := json.Unmarshal(iter.Value(), &pa); err != nil {
			continue
		}
		assets = append(assets, domain.Asset{ID: pa.ID, Decimals: pa.Decimals})
	}
	return assets, nil
}

func counterBytes(v uint64) []byte {
	return []byte(fmt.Sprintf("%020d", v))
}

func parseCounterBytes(data []byte) (uint64, error) {
	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse counter: %w", err)
	}
	return v, nil
}
