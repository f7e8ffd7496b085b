package engine

import (
	"errors"
	"math/bits"

	"clobengine/internal/domain"
)

// ErrOverflow signals that a scaling computation's 128-bit intermediate
// product divided by D would not fit back into 64 bits. This should
// never happen for realistic (amount, price) pairs — it guards against
// pathological inputs per the scaling contract.
var ErrOverflow = errors.New("arithmetic_overflow")

// QuoteUnits converts a base-smallest-units amount to quote-smallest-units
// at the given price: floor(base * price / D), where D = 10^baseDecimals.
// Widens the base*price multiplication to 128 bits before dividing so
// that large (amount, price) pairs never silently wrap. Returns
// domain.ErrQuoteAmountTooSmall if the result would be zero despite a
// nonzero base amount — that is dust that would transfer nothing.
func QuoteUnits(base, price, divisor uint64) (uint64, error) {
	q, err := quoteUnitsUnchecked(base, price, divisor)
	if err != nil {
		return 0, err
	}
	if q == 0 && base > 0 {
		return 0, domain.ErrQuoteAmountTooSmall
	}
	return q, nil
}

// quoteUnitsUnchecked is QuoteUnits without the dust rejection, for
// internal call sites — the matching loop and cancel/amend refunds —
// where a zero result is a legitimate (if uninteresting) outcome rather
// than an error: spec.md §4.5 imposes no minimum on an individual match
// fill, only on the amount placed in the first place.
func quoteUnitsUnchecked(base, price, divisor uint64) (uint64, error) {
	hi, lo := bits.Mul64(base, price)
	if hi >= divisor {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, divisor)
	return q, nil
}

// BaseUnits is the inverse of QuoteUnits: floor(quote * D / price), the
// base-smallest-units a quote-unit budget buys at the given price.
// Returns domain.ErrBaseAmountTooSmall if the result would be zero
// despite a nonzero quote budget.
func BaseUnits(quote, price, divisor uint64) (uint64, error) {
	q, err := baseUnitsUnchecked(quote, price, divisor)
	if err != nil {
		return 0, err
	}
	if q == 0 && quote > 0 {
		return 0, domain.ErrBaseAmountTooSmall
	}
	return q, nil
}

// baseUnitsUnchecked is BaseUnits without the dust rejection — see
// quoteUnitsUnchecked.
func baseUnitsUnchecked(quote, price, divisor uint64) (uint64, error) {
	hi, lo := bits.Mul64(quote, divisor)
	if hi >= price {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, price)
	return q, nil
}
