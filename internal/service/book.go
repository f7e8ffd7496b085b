package service

import (
	"clobengine/internal/domain"
)

// BookService answers read-only queries against a pair's resting book,
// generalized from the teacher's StockService (which read price/book/
// quote off a ticker symbol) to this engine's (base, quote) pairs.
type BookService struct {
	pairs *PairService
}

// NewBookService creates a BookService over pairs.
func NewBookService(pairs *PairService) *BookService {
	return &BookService{pairs: pairs}
}

// Liquidity returns the resting base units at price on side for the
// (baseID, quoteID) pair.
func (s *BookService) Liquidity(baseID, quoteID string, side domain.Side, price uint64) (uint64, error) {
	eng, ok := s.pairs.Get(baseID, quoteID)
	if !ok {
		return 0, domain.ErrPairNotFound
	}
	return eng.Liquidity(side, price), nil
}

// LastTradePrice returns the most recent trade price for the
// (baseID, quoteID) pair, 0 if none yet.
func (s *BookService) LastTradePrice(baseID, quoteID string) (uint64, error) {
	eng, ok := s.pairs.Get(baseID, quoteID)
	if !ok {
		return 0, domain.ErrPairNotFound
	}
	return eng.LastTradePrice(), nil
}
