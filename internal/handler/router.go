package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clobengine/internal/service"
)

// NewRouter creates a chi router with all routes registered, request
// logging, and Content-Type validation middleware.
func NewRouter(
	pairSvc *service.PairService,
	bookSvc *service.BookService,
	orderSvc *service.OrderService,
	webhookSvc *service.WebhookService,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	pairH := NewPairHandler(pairSvc, bookSvc)
	orderH := NewOrderHandler(orderSvc)
	webhookH := NewWebhookHandler(webhookSvc)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/quote-assets", pairH.AddQuote)
	r.Post("/pairs", pairH.Create)
	r.Get("/pairs", pairH.List)
	r.Get("/pairs/{base}/{quote}/liquidity", pairH.GetLiquidity)
	r.Get("/pairs/{base}/{quote}/last-trade", pairH.GetLastTrade)

	r.Post("/pairs/{base}/{quote}/orders", orderH.PlaceLimit)
	r.Get("/pairs/{base}/{quote}/orders/{order_id}", orderH.GetOrder)
	r.Patch("/pairs/{base}/{quote}/orders/{order_id}", orderH.AmendOrder)
	r.Delete("/pairs/{base}/{quote}/orders/{order_id}", orderH.CancelOrder)
	r.Post("/pairs/{base}/{quote}/market-orders", orderH.ExecuteMarket)

	r.Post("/webhooks", webhookH.Upsert)
	r.Get("/webhooks", webhookH.List)
	r.Delete("/webhooks/{webhook_id}", webhookH.Delete)

	return r
}

// requestLogging returns middleware that logs each request's method,
// path, status code, and duration using zap — swapped in for the
// teacher's slog-based equivalent, per hyperlicked's pkg/util.NewLogger.
func requestLogging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON is middleware that validates Content-Type for POST,
// PUT, and PATCH requests.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
