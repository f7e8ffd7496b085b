package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"clobengine/internal/domain"
	"clobengine/internal/engine"
	"clobengine/internal/service"
)

// OrderHandler handles HTTP requests for order lifecycle endpoints,
// scoped under a (base, quote) pair in the URL path.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

type legInput struct {
	Price  uint64 `json:"price"`
	Amount uint64 `json:"amount"`
}

// placeLimitRequest is the JSON request body for POST /pairs/{base}/{quote}/orders.
type placeLimitRequest struct {
	Trader string     `json:"trader"`
	Side   string     `json:"side"`
	Legs   []legInput `json:"legs"`
}

type orderResponse struct {
	ID        uint64 `json:"id"`
	Trader    string `json:"trader"`
	Price     uint64 `json:"price"`
	Amount    uint64 `json:"amount"`
	Filled    uint64 `json:"filled"`
	Remaining uint64 `json:"remaining"`
	Side      string `json:"side"`
	Active    bool   `json:"active"`
}

type placeLimitResponse struct {
	Orders []orderResponse `json:"orders"`
}

func buildOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		ID:        o.ID,
		Trader:    string(o.Trader),
		Price:     o.Price,
		Amount:    o.Amount,
		Filled:    o.Filled,
		Remaining: o.Remaining(),
		Side:      string(o.Side),
		Active:    o.Active,
	}
}

// PlaceLimit handles POST /pairs/{base}/{quote}/orders.
func (h *OrderHandler) PlaceLimit(w http.ResponseWriter, r *http.Request) {
	base, quote := chi.URLParam(r, "base"), chi.URLParam(r, "quote")

	var req placeLimitRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Side != string(domain.Buy) && req.Side != string(domain.Sell) {
		WriteError(w, http.StatusBadRequest, "validation_error", "side must be buy or sell")
		return
	}

	legs := make([]engine.Leg, len(req.Legs))
	for i, l := range req.Legs {
		legs[i] = engine.Leg{Price: l.Price, Amount: l.Amount}
	}

	orders, err := h.orderSvc.PlaceLimit(base, quote, domain.Account(req.Trader), domain.Side(req.Side), legs)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	resp := placeLimitResponse{Orders: make([]orderResponse, len(orders))}
	for i, o := range orders {
		resp.Orders[i] = buildOrderResponse(o)
	}
	WriteJSON(w, http.StatusCreated, resp)
}

// GetOrder handles GET /pairs/{base}/{quote}/orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	base, quote := chi.URLParam(r, "base"), chi.URLParam(r, "quote")
	id, err := strconv.ParseUint(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "order_id must be a positive integer")
		return
	}

	order, err := h.orderSvc.Get(base, quote, id)
	if err != nil {
		mapOrderError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// CancelOrder handles DELETE /pairs/{base}/{quote}/orders/{order_id}.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	base, quote := chi.URLParam(r, "base"), chi.URLParam(r, "quote")
	id, err := strconv.ParseUint(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "order_id must be a positive integer")
		return
	}
	trader := r.URL.Query().Get("trader")

	order, err := h.orderSvc.Cancel(base, quote, domain.Account(trader), id)
	if err != nil {
		mapOrderError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// amendRequest is the JSON request body for PATCH .../orders/{order_id}.
type amendRequest struct {
	Trader    string `json:"trader"`
	NewAmount uint64 `json:"new_amount"`
}

// AmendOrder handles PATCH /pairs/{base}/{quote}/orders/{order_id}.
func (h *OrderHandler) AmendOrder(w http.ResponseWriter, r *http.Request) {
	base, quote := chi.URLParam(r, "base"), chi.URLParam(r, "quote")
	id, err := strconv.ParseUint(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "order_id must be a positive integer")
		return
	}

	var req amendRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	order, err := h.orderSvc.Amend(base, quote, domain.Account(req.Trader), id, req.NewAmount)
	if err != nil {
		mapOrderError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// executeMarketRequest is the JSON request body for
// POST /pairs/{base}/{quote}/market-orders.
type executeMarketRequest struct {
	Trader        string   `json:"trader"`
	Amount        uint64   `json:"amount"`
	Side          string   `json:"side"`
	PriceHints    []uint64 `json:"price_hints"`
	MinReceived   uint64   `json:"min_received"`
	ExpirationSec int64    `json:"expiration_unix"`
}

type tradeResponse struct {
	TradeID     string `json:"trade_id"`
	BuyOrderID  uint64 `json:"buy_order_id,omitempty"`
	SellOrderID uint64 `json:"sell_order_id,omitempty"`
	Buyer       string `json:"buyer"`
	Seller      string `json:"seller"`
	Price       uint64 `json:"price"`
	BaseAmount  uint64 `json:"base_amount"`
}

type marketOrderResponse struct {
	TotalBaseReceived  uint64          `json:"total_base_received"`
	TotalQuoteReceived uint64          `json:"total_quote_received"`
	Trades             []tradeResponse `json:"trades"`
}

func buildTradeResponses(trades []*domain.Trade) []tradeResponse {
	out := make([]tradeResponse, len(trades))
	for i, t := range trades {
		out[i] = tradeResponse{
			TradeID:     t.TradeID,
			BuyOrderID:  t.BuyOrderID,
			SellOrderID: t.SellOrderID,
			Buyer:       string(t.Buyer),
			Seller:      string(t.Seller),
			Price:       t.Price,
			BaseAmount:  t.BaseAmount,
		}
	}
	return out
}

// ExecuteMarket handles POST /pairs/{base}/{quote}/market-orders.
func (h *OrderHandler) ExecuteMarket(w http.ResponseWriter, r *http.Request) {
	base, quote := chi.URLParam(r, "base"), chi.URLParam(r, "quote")

	var req executeMarketRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Side != string(domain.Buy) && req.Side != string(domain.Sell) {
		WriteError(w, http.StatusBadRequest, "validation_error", "side must be buy or sell")
		return
	}

	var expiration time.Time
	if req.ExpirationSec > 0 {
		expiration = time.Unix(req.ExpirationSec, 0)
	}

	result, err := h.orderSvc.ExecuteMarket(service.ExecuteMarketRequest{
		BaseID: base, QuoteID: quote,
		Trader: domain.Account(req.Trader), Amount: req.Amount, Side: domain.Side(req.Side),
		PriceHints: req.PriceHints, MinReceived: req.MinReceived, Expiration: expiration,
	})
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, marketOrderResponse{
		TotalBaseReceived:  result.TotalBaseReceived,
		TotalQuoteReceived: result.TotalQuoteReceived,
		Trades:             buildTradeResponses(result.Trades),
	})
}

// mapOrderError maps domain errors to HTTP responses for order endpoints.
func mapOrderError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrPairNotFound):
		WriteError(w, http.StatusNotFound, "pair_not_found", err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, domain.ErrOrderInactive):
		WriteError(w, http.StatusConflict, "order_inactive", err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		WriteError(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error())
	case errors.Is(err, domain.ErrInsufficientBaseReceived), errors.Is(err, domain.ErrInsufficientQuoteReceived):
		WriteError(w, http.StatusUnprocessableEntity, "slippage_exceeded", err.Error())
	case errors.Is(err, domain.ErrOrderExpired):
		WriteError(w, http.StatusGone, "order_expired", err.Error())
	case errors.Is(err, domain.ErrInvalidPrice), errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrBatchSizeTooLarge),
		errors.Is(err, domain.ErrNoPricesProvided), errors.Is(err, domain.ErrAmountLessThanFilled),
		errors.Is(err, domain.ErrQuoteAmountTooSmall), errors.Is(err, domain.ErrBaseAmountTooSmall):
		WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
