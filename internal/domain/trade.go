package domain

import "time"

// Trade records one match between a resting buy order and a resting sell
// order at a single price (the TradeExecuted event).
type Trade struct {
	TradeID     string // google/uuid string
	BuyOrderID  uint64
	SellOrderID uint64
	Buyer       Account
	Seller      Account
	Price       uint64
	BaseAmount  uint64
	ExecutedAt  time.Time
}
