package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"clobengine/internal/domain"
	"clobengine/internal/service"
)

// PairHandler handles HTTP requests for pair registration and book
// queries, generalized from the teacher's BrokerHandler (registration)
// and StockHandler (price/book reads) onto the registry/pairs model.
type PairHandler struct {
	pairSvc *service.PairService
	bookSvc *service.BookService
}

// NewPairHandler creates a new PairHandler.
func NewPairHandler(pairSvc *service.PairService, bookSvc *service.BookService) *PairHandler {
	return &PairHandler{pairSvc: pairSvc, bookSvc: bookSvc}
}

type addQuoteRequest struct {
	AssetID  string `json:"asset_id"`
	Decimals uint8  `json:"decimals"`
}

// AddQuote handles POST /quote-assets.
func (h *PairHandler) AddQuote(w http.ResponseWriter, r *http.Request) {
	var req addQuoteRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := h.pairSvc.AddQuote(req.AssetID, req.Decimals); err != nil {
		mapPairError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type createPairRequest struct {
	BaseID        string `json:"base_id"`
	BaseDecimals  uint8  `json:"base_decimals"`
	QuoteID       string `json:"quote_id"`
	QuoteDecimals uint8  `json:"quote_decimals"`
}

type pairResponse struct {
	BaseID  string `json:"base_id"`
	QuoteID string `json:"quote_id"`
}

// Create handles POST /pairs.
func (h *PairHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPairRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	eng, err := h.pairSvc.Create(service.CreatePairRequest{
		BaseID: req.BaseID, BaseDecimals: req.BaseDecimals,
		QuoteID: req.QuoteID, QuoteDecimals: req.QuoteDecimals,
	})
	if err != nil {
		mapPairError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, pairResponse{
		BaseID:  eng.BaseAsset().ID,
		QuoteID: eng.QuoteAsset().ID,
	})
}

// List handles GET /pairs.
func (h *PairHandler) List(w http.ResponseWriter, r *http.Request) {
	handles := h.pairSvc.List()
	resp := make([]pairResponse, len(handles))
	for i, hd := range handles {
		resp[i] = pairResponse{BaseID: hd.Base.ID, QuoteID: hd.Quote.ID}
	}
	WriteJSON(w, http.StatusOK, resp)
}

type liquidityResponse struct {
	Side      string `json:"side"`
	Price     uint64 `json:"price"`
	Liquidity uint64 `json:"liquidity"`
}

// GetLiquidity handles GET /pairs/{base}/{quote}/liquidity.
func (h *PairHandler) GetLiquidity(w http.ResponseWriter, r *http.Request) {
	base, quote := chi.URLParam(r, "base"), chi.URLParam(r, "quote")

	side := r.URL.Query().Get("side")
	if side != string(domain.Buy) && side != string(domain.Sell) {
		WriteError(w, http.StatusBadRequest, "validation_error", "side must be buy or sell")
		return
	}
	price, err := strconv.ParseUint(r.URL.Query().Get("price"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "price must be a positive integer")
		return
	}

	liquidity, err := h.bookSvc.Liquidity(base, quote, domain.Side(side), price)
	if err != nil {
		mapPairError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, liquidityResponse{Side: side, Price: price, Liquidity: liquidity})
}

type lastTradeResponse struct {
	Price uint64 `json:"price"`
}

// GetLastTrade handles GET /pairs/{base}/{quote}/last-trade.
func (h *PairHandler) GetLastTrade(w http.ResponseWriter, r *http.Request) {
	base, quote := chi.URLParam(r, "base"), chi.URLParam(r, "quote")
	price, err := h.bookSvc.LastTradePrice(base, quote)
	if err != nil {
		mapPairError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, lastTradeResponse{Price: price})
}

// mapPairError maps domain errors to HTTP responses for pair endpoints.
func mapPairError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrPairNotFound):
		WriteError(w, http.StatusNotFound, "pair_not_found", err.Error())
	case errors.Is(err, domain.ErrPairAlreadyExists):
		WriteError(w, http.StatusConflict, "pair_already_exists", err.Error())
	case errors.Is(err, domain.ErrQuoteTokenAlreadyWhitelisted):
		WriteError(w, http.StatusConflict, "quote_token_already_whitelisted", err.Error())
	case errors.Is(err, domain.ErrQuoteTokenNotWhitelisted):
		WriteError(w, http.StatusUnprocessableEntity, "quote_token_not_whitelisted", err.Error())
	case errors.Is(err, domain.ErrIdenticalTokens), errors.Is(err, domain.ErrInvalidBaseToken), errors.Is(err, domain.ErrInvalidQuoteToken):
		WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
