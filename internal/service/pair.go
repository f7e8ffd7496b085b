// Package service is the thin layer between the HTTP handlers and the
// engine/registry core: it translates request DTOs into domain calls
// and domain results back into whatever shape a handler needs, the way
// the teacher's service package sits between handler and store/engine.
package service

import (
	"clobengine/internal/domain"
	"clobengine/internal/engine"
	"clobengine/internal/registry"
)

// PairService wraps a PairRegistry with the asset-identity bookkeeping
// (decimals) a handler request doesn't carry end to end.
type PairService struct {
	registry *registry.PairRegistry
}

// NewPairService creates a PairService over r.
func NewPairService(r *registry.PairRegistry) *PairService {
	return &PairService{registry: r}
}

// CreatePairRequest is the input for Create.
type CreatePairRequest struct {
	BaseID        string
	BaseDecimals  uint8
	QuoteID       string
	QuoteDecimals uint8
}

// AddQuote whitelists assetID (with the given decimals) as a permitted
// quote asset for future pairs.
func (s *PairService) AddQuote(assetID string, decimals uint8) error {
	return s.registry.AddQuote(domain.Asset{ID: assetID, Decimals: decimals})
}

// Create registers a new pair and returns its engine.
func (s *PairService) Create(req CreatePairRequest) (*engine.MatchingEngine, error) {
	base := domain.Asset{ID: req.BaseID, Decimals: req.BaseDecimals}
	quote := domain.Asset{ID: req.QuoteID, Decimals: req.QuoteDecimals}
	return s.registry.Create(base, quote)
}

// Get looks up the engine for an unordered (baseID, quoteID) pair.
func (s *PairService) Get(baseID, quoteID string) (*engine.MatchingEngine, bool) {
	return s.registry.Get(domain.Asset{ID: baseID}, domain.Asset{ID: quoteID})
}

// List returns every registered pair, in creation order.
func (s *PairService) List() []*registry.Handle {
	return s.registry.All()
}
