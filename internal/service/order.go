package service

import (
	"time"

	"clobengine/internal/domain"
	"clobengine/internal/engine"
)

// OrderService resolves a (base, quote) pair to its engine and forwards
// the lifecycle operations, the way the teacher's OrderService sat in
// front of the process-wide Matcher — generalized here from one matcher
// per process to one lookup per pair.
type OrderService struct {
	pairs *PairService
}

// NewOrderService creates an OrderService over pairs.
func NewOrderService(pairs *PairService) *OrderService {
	return &OrderService{pairs: pairs}
}

func (s *OrderService) engineFor(baseID, quoteID string) (*engine.MatchingEngine, error) {
	eng, ok := s.pairs.Get(baseID, quoteID)
	if !ok {
		return nil, domain.ErrPairNotFound
	}
	return eng, nil
}

// PlaceLimit places a batch of limit legs on the (baseID, quoteID) pair.
func (s *OrderService) PlaceLimit(baseID, quoteID string, trader domain.Account, side domain.Side, legs []engine.Leg) ([]*domain.Order, error) {
	eng, err := s.engineFor(baseID, quoteID)
	if err != nil {
		return nil, err
	}
	return eng.Place(trader, side, legs)
}

// Cancel cancels order id on the (baseID, quoteID) pair.
func (s *OrderService) Cancel(baseID, quoteID string, trader domain.Account, id uint64) (*domain.Order, error) {
	eng, err := s.engineFor(baseID, quoteID)
	if err != nil {
		return nil, err
	}
	return eng.Cancel(trader, id)
}

// Amend changes order id's total amount on the (baseID, quoteID) pair.
func (s *OrderService) Amend(baseID, quoteID string, trader domain.Account, id uint64, newAmount uint64) (*domain.Order, error) {
	eng, err := s.engineFor(baseID, quoteID)
	if err != nil {
		return nil, err
	}
	return eng.Amend(trader, id, newAmount)
}

// ExecuteMarketRequest is the input for ExecuteMarket.
type ExecuteMarketRequest struct {
	BaseID      string
	QuoteID     string
	Trader      domain.Account
	Amount      uint64
	Side        domain.Side
	PriceHints  []uint64
	MinReceived uint64
	Expiration  time.Time
}

// ExecuteMarket sweeps a market order across req's pair.
func (s *OrderService) ExecuteMarket(req ExecuteMarketRequest) (*engine.MarketResult, error) {
	eng, err := s.engineFor(req.BaseID, req.QuoteID)
	if err != nil {
		return nil, err
	}
	return eng.ExecuteMarket(req.Trader, req.Amount, req.Side, req.PriceHints, req.MinReceived, req.Expiration)
}

// Get looks up order id on the (baseID, quoteID) pair.
func (s *OrderService) Get(baseID, quoteID string, id uint64) (*domain.Order, error) {
	eng, err := s.engineFor(baseID, quoteID)
	if err != nil {
		return nil, err
	}
	order := eng.Order(id)
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// ListByTrader returns the ids of every order trader has ever placed on
// the (baseID, quoteID) pair.
func (s *OrderService) ListByTrader(baseID, quoteID string, trader domain.Account) ([]uint64, error) {
	eng, err := s.engineFor(baseID, quoteID)
	if err != nil {
		return nil, err
	}
	return eng.OrdersOf(trader), nil
}
