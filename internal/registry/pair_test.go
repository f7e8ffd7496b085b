package registry

import (
	"testing"

	"clobengine/internal/domain"
	"clobengine/internal/ledger"
)

var (
	usdc = domain.Asset{ID: "USDC", Decimals: 6}
	wbtc = domain.Asset{ID: "WBTC", Decimals: 8}
	weth = domain.Asset{ID: "WETH", Decimals: 18}
)

func newTestRegistry() *PairRegistry {
	return New(ledger.NewMemoryLedger(), nil, nil)
}

func TestAddQuote_WhitelistsAsset(t *testing.T) {
	r := newTestRegistry()
	if err := r.AddQuote(usdc); err != nil {
		t.Fatalf("AddQuote() error: %v", err)
	}
	if !r.QuoteWhitelisted(usdc) {
		t.Fatalf("QuoteWhitelisted(usdc) = false, want true")
	}
}

func TestAddQuote_DuplicateRejected(t *testing.T) {
	r := newTestRegistry()
	r.AddQuote(usdc)
	if err := r.AddQuote(usdc); err != domain.ErrQuoteTokenAlreadyWhitelisted {
		t.Fatalf("AddQuote(duplicate) error = %v, want ErrQuoteTokenAlreadyWhitelisted", err)
	}
}

func TestCreate_RejectsNonWhitelistedQuote(t *testing.T) {
	r := newTestRegistry()
	if _, err := r.Create(wbtc, usdc); err != domain.ErrQuoteTokenNotWhitelisted {
		t.Fatalf("Create() error = %v, want ErrQuoteTokenNotWhitelisted", err)
	}
}

func TestCreate_RejectsIdenticalTokens(t *testing.T) {
	r := newTestRegistry()
	r.AddQuote(usdc)
	if _, err := r.Create(usdc, usdc); err != domain.ErrIdenticalTokens {
		t.Fatalf("Create(identical) error = %v, want ErrIdenticalTokens", err)
	}
}

func TestCreate_SucceedsAndIndexes(t *testing.T) {
	r := newTestRegistry()
	r.AddQuote(usdc)

	eng, err := r.Create(wbtc, usdc)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if eng == nil {
		t.Fatal("Create() returned a nil engine")
	}
	if eng.BaseAsset() != wbtc || eng.QuoteAsset() != usdc {
		t.Fatalf("engine assets = (%v, %v), want (wbtc, usdc)", eng.BaseAsset(), eng.QuoteAsset())
	}
	if r.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", r.Count())
	}
}

func TestCreate_DuplicateRejectedRegardlessOfOrdering(t *testing.T) {
	r := newTestRegistry()
	r.AddQuote(usdc)
	r.AddQuote(wbtc)
	if _, err := r.Create(wbtc, usdc); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := r.Create(usdc, wbtc); err != domain.ErrPairAlreadyExists {
		t.Fatalf("Create(reversed) error = %v, want ErrPairAlreadyExists", err)
	}
}

func TestCreate_PreservesCallerOrdering(t *testing.T) {
	r := newTestRegistry()
	r.AddQuote(usdc)
	eng, err := r.Create(wbtc, usdc)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if eng.BaseAsset().ID != "WBTC" {
		t.Fatalf("BaseAsset() = %v, want WBTC even though the canonical key sorts WBTC after USDC", eng.BaseAsset())
	}
}

func TestGet_FindsPairRegardlessOfArgumentOrder(t *testing.T) {
	r := newTestRegistry()
	r.AddQuote(usdc)
	r.Create(wbtc, usdc)

	if _, ok := r.Get(wbtc, usdc); !ok {
		t.Fatal("Get(wbtc, usdc) = false, want true")
	}
	if _, ok := r.Get(usdc, wbtc); !ok {
		t.Fatal("Get(usdc, wbtc) = false, want true")
	}
	if _, ok := r.Get(weth, usdc); ok {
		t.Fatal("Get(weth, usdc) = true, want false — never created")
	}
}

func TestByIndex_ReturnsCreationOrder(t *testing.T) {
	r := newTestRegistry()
	r.AddQuote(usdc)
	r.Create(wbtc, usdc)
	r.Create(weth, usdc)

	first, ok := r.ByIndex(0)
	if !ok || first.Base.ID != "WBTC" {
		t.Fatalf("ByIndex(0) = %+v, ok=%v, want WBTC first", first, ok)
	}
	second, ok := r.ByIndex(1)
	if !ok || second.Base.ID != "WETH" {
		t.Fatalf("ByIndex(1) = %+v, ok=%v, want WETH second", second, ok)
	}
	if _, ok := r.ByIndex(2); ok {
		t.Fatal("ByIndex(2) = true, want false — out of range")
	}
}

func TestAll_ReturnsACopy(t *testing.T) {
	r := newTestRegistry()
	r.AddQuote(usdc)
	r.Create(wbtc, usdc)

	all := r.All()
	all[0] = nil
	if _, ok := r.ByIndex(0); !ok {
		t.Fatal("mutating All()'s returned slice affected the registry's internal list")
	}
}
