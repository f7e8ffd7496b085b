package persist

import "fmt"

// Pebble key schema for the engine's persisted state, following the
// layout spec.md §6 lists with ":" as the separator: orders:<pair>:<id>,
// levels:<pair>:<side>:<price>, index:<pair>:<side>:<price>,
// counters:<pair>:order_id, counters:<pair>:last_trade_price,
// registry:whitelist:<asset>. Registry handles are the one exception:
// they are stored under registry:handle:<key>, not registry:<key>:handle,
// so a prefix scan over registry:handle: never sees whitelist entries.
// Adapted from hyperlicked's account/keys.go prefix-based scheme
// (lexicographic, so a prefix scan enumerates everything under it).
const (
	prefixOrder          = "orders:"
	prefixLevel          = "levels:"
	prefixIndex          = "index:"
	prefixCounter        = "counters:"
	prefixRegistryHandle = "registry:handle:"
	prefixWhitelist      = "registry:whitelist:"
)

func orderKey(pair string, id uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixOrder, pair, id))
}

func orderPrefix(pair string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixOrder, pair))
}

func levelKey(pair string, side string, price uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%020d", prefixLevel, pair, side, price))
}

func levelPrefix(pair string, side string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:", prefixLevel, pair, side))
}

func indexKey(pair string, side string, price uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%020d", prefixIndex, pair, side, price))
}

func orderIDCounterKey(pair string) []byte {
	return []byte(fmt.Sprintf("%s%s:order_id", prefixCounter, pair))
}

func lastTradePriceCounterKey(pair string) []byte {
	return []byte(fmt.Sprintf("%s%s:last_trade_price", prefixCounter, pair))
}

func registryHandleKey(key string) []byte {
	return []byte(prefixRegistryHandle + key)
}

func registryHandlePrefix() []byte {
	return []byte(prefixRegistryHandle)
}

func whitelistKey(asset string) []byte {
	return []byte(prefixWhitelist + asset)
}

func whitelistPrefix() []byte {
	return []byte(prefixWhitelist)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan,
// incrementing the prefix's final byte.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
