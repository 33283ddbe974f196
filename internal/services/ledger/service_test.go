package ledger

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/finfolio/finfolio/internal/common"
	"github.com/finfolio/finfolio/internal/models"
)

// --- Mocks ---

// memHoldings is an in-memory HoldingStore whose AcquireUpsert and
// DecrementQuantity mirror the store's atomic statements: each runs under
// one lock acquisition, so concurrent calls linearize the same way the
// database statements do.
type memHoldings struct {
	mu      sync.Mutex
	records map[string]*models.Holding
}

func newMemHoldings() *memHoldings {
	return &memHoldings{records: make(map[string]*models.Holding)}
}

func (m *memHoldings) Get(_ context.Context, ownerID, symbol string) (*models.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.records[models.HoldingID(ownerID, symbol)]
	if !ok {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

func (m *memHoldings) Upsert(_ context.Context, h *models.Holding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *h
	m.records[models.HoldingID(h.OwnerID, h.Symbol)] = &cp
	return nil
}

func (m *memHoldings) AcquireUpsert(_ context.Context, ownerID, symbol string, quantity, price float64) (*models.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := models.HoldingID(ownerID, symbol)
	h, ok := m.records[id]
	if !ok {
		h = &models.Holding{OwnerID: ownerID, Symbol: symbol}
		m.records[id] = h
	}
	h.AvgCost = (h.Quantity*h.AvgCost + quantity*price) / (h.Quantity + quantity)
	h.Quantity += quantity
	h.UpdatedAt = time.Now()
	cp := *h
	return &cp, nil
}

func (m *memHoldings) DecrementQuantity(_ context.Context, ownerID, symbol string, quantity float64) (*models.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.records[models.HoldingID(ownerID, symbol)]
	if !ok || h.Quantity < quantity {
		return nil, nil
	}
	h.Quantity -= quantity
	h.UpdatedAt = time.Now()
	cp := *h
	return &cp, nil
}

func (m *memHoldings) Delete(_ context.Context, ownerID, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, models.HoldingID(ownerID, symbol))
	return nil
}

func (m *memHoldings) ListByOwner(_ context.Context, ownerID string) ([]*models.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Holding
	for _, h := range m.records {
		if h.OwnerID == ownerID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memHoldings) DistinctSymbols(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, h := range m.records {
		if !seen[h.Symbol] {
			seen[h.Symbol] = true
			out = append(out, h.Symbol)
		}
	}
	return out, nil
}

type memSales struct {
	mu    sync.Mutex
	sales []*models.RealizedSale
}

func (m *memSales) Append(_ context.Context, sale *models.RealizedSale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sale
	m.sales = append(m.sales, &cp)
	return nil
}

func (m *memSales) ListByOwner(_ context.Context, ownerID string) ([]*models.RealizedSale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.RealizedSale
	for _, s := range m.sales {
		if s.OwnerID == ownerID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSales) Delete(_ context.Context, ownerID, saleID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sales {
		if s.ID == saleID && s.OwnerID == ownerID {
			m.sales = append(m.sales[:i], m.sales[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// stubCache is a PriceCache with a fixed answer.
type stubCache struct {
	price      float64
	ok         bool
	fetchCalls int
}

func (c *stubCache) Read(_ context.Context, _ string, _ time.Duration) (float64, bool) {
	return c.price, c.ok
}

func (c *stubCache) GetOrFetch(_ context.Context, _ string, _ time.Duration, allowFetch bool) (float64, bool) {
	if allowFetch {
		c.fetchCalls++
	}
	return c.price, c.ok
}

func (c *stubCache) Store(_ context.Context, _ string, _ float64) error { return nil }

func newTestService(holdings *memHoldings, sales *memSales, cache *stubCache) *Service {
	return NewService(holdings, sales, cache, common.NewSilentLogger())
}

func ptr(v float64) *float64 { return &v }

// --- Acquire ---

func TestAcquireCreatesHolding(t *testing.T) {
	holdings := newMemHoldings()
	svc := newTestService(holdings, &memSales{}, &stubCache{})

	h, err := svc.Acquire(context.Background(), "owner1", "aapl", 10, 150.00)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if h.Symbol != "AAPL" {
		t.Errorf("expected normalized symbol AAPL, got %q", h.Symbol)
	}
	if h.Quantity != 10 || h.AvgCost != 150.00 {
		t.Errorf("expected 10 @ 150.00, got %v @ %v", h.Quantity, h.AvgCost)
	}
}

func TestAcquireWeightedAverage(t *testing.T) {
	holdings := newMemHoldings()
	svc := newTestService(holdings, &memSales{}, &stubCache{})
	ctx := context.Background()

	if _, err := svc.Acquire(ctx, "owner1", "AAPL", 10, 100.00); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	h, err := svc.Acquire(ctx, "owner1", "AAPL", 10, 200.00)
	if err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if h.Quantity != 20 {
		t.Errorf("expected quantity 20, got %v", h.Quantity)
	}
	if h.AvgCost != 150.00 {
		t.Errorf("expected weighted average 150.00, got %v", h.AvgCost)
	}
}

func TestAcquireRejectsNonPositive(t *testing.T) {
	svc := newTestService(newMemHoldings(), &memSales{}, &stubCache{})
	ctx := context.Background()

	if _, err := svc.Acquire(ctx, "owner1", "AAPL", 0, 100); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("zero quantity: expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := svc.Acquire(ctx, "owner1", "AAPL", -1, 100); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("negative quantity: expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := svc.Acquire(ctx, "owner1", "AAPL", 1, 0); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("zero price: expected ErrInvalidPrice, got %v", err)
	}
}

func TestAcquireWarmsCache(t *testing.T) {
	cache := &stubCache{price: 150.00, ok: true}
	svc := newTestService(newMemHoldings(), &memSales{}, cache)

	if _, err := svc.Acquire(context.Background(), "owner1", "AAPL", 1, 150.00); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if cache.fetchCalls != 1 {
		t.Errorf("expected one cache warm, got %d", cache.fetchCalls)
	}
}

func TestConcurrentAcquiresSumExactly(t *testing.T) {
	holdings := newMemHoldings()
	svc := newTestService(holdings, &memSales{}, &stubCache{})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Acquire(context.Background(), "owner1", "AAPL", 1, 100.00); err != nil {
				t.Errorf("concurrent Acquire failed: %v", err)
			}
		}()
	}
	wg.Wait()

	h, err := holdings.Get(context.Background(), "owner1", "AAPL")
	if err != nil || h == nil {
		t.Fatalf("expected holding, got %v err=%v", h, err)
	}
	if h.Quantity != 3 {
		t.Errorf("expected quantity 3, got %v", h.Quantity)
	}
	if h.AvgCost != 100.00 {
		t.Errorf("expected average 100.00, got %v", h.AvgCost)
	}
}

// --- SetPosition ---

func TestSetPositionOverwrites(t *testing.T) {
	holdings := newMemHoldings()
	svc := newTestService(holdings, &memSales{}, &stubCache{})
	ctx := context.Background()

	if _, err := svc.Acquire(ctx, "owner1", "AAPL", 10, 100.00); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	h, err := svc.SetPosition(ctx, "owner1", "AAPL", 5, 90.00)
	if err != nil {
		t.Fatalf("SetPosition failed: %v", err)
	}
	if h.Quantity != 5 || h.AvgCost != 90.00 {
		t.Errorf("expected 5 @ 90.00 with no averaging, got %v @ %v", h.Quantity, h.AvgCost)
	}
}

func TestSetPositionZeroDeletes(t *testing.T) {
	holdings := newMemHoldings()
	svc := newTestService(holdings, &memSales{}, &stubCache{})
	ctx := context.Background()

	if _, err := svc.Acquire(ctx, "owner1", "AAPL", 10, 100.00); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	h, err := svc.SetPosition(ctx, "owner1", "AAPL", 0, 0)
	if err != nil {
		t.Fatalf("SetPosition failed: %v", err)
	}
	if h != nil {
		t.Errorf("zero quantity should return no holding, got %+v", h)
	}
	if got, _ := holdings.Get(ctx, "owner1", "AAPL"); got != nil {
		t.Error("zero-quantity holding must be deleted, not stored")
	}
}

// --- Dispose ---

func TestDisposeRealizesExactProfit(t *testing.T) {
	holdings := newMemHoldings()
	sales := &memSales{}
	svc := newTestService(holdings, sales, &stubCache{})
	ctx := context.Background()

	if _, err := svc.Acquire(ctx, "owner1", "AAPL", 5, 100.00); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	sale, err := svc.Dispose(ctx, "owner1", "AAPL", 5, ptr(120.00))
	if err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if sale.Profit != 100.00 {
		t.Errorf("expected profit exactly 100.00, got %v", sale.Profit)
	}
	if sale.CostBasis != 100.00 || sale.SalePrice != 120.00 {
		t.Errorf("expected basis 100.00 / price 120.00, got %v / %v", sale.CostBasis, sale.SalePrice)
	}
}

func TestDisposePartialKeepsAvgCost(t *testing.T) {
	holdings := newMemHoldings()
	svc := newTestService(holdings, &memSales{}, &stubCache{})
	ctx := context.Background()

	if _, err := svc.Acquire(ctx, "owner1", "AAPL", 10, 150.00); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := svc.Dispose(ctx, "owner1", "AAPL", 4, ptr(170.00)); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}

	h, _ := holdings.Get(ctx, "owner1", "AAPL")
	if h == nil {
		t.Fatal("partial disposal must keep the holding")
	}
	if h.Quantity != 6 {
		t.Errorf("expected remaining quantity 6, got %v", h.Quantity)
	}
	if h.AvgCost != 150.00 {
		t.Errorf("average cost must not change on disposal, got %v", h.AvgCost)
	}
}

func TestDisposeFullDeletesHolding(t *testing.T) {
	holdings := newMemHoldings()
	svc := newTestService(holdings, &memSales{}, &stubCache{})
	ctx := context.Background()

	if _, err := svc.Acquire(ctx, "owner1", "AAPL", 5, 100.00); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := svc.Dispose(ctx, "owner1", "AAPL", 5, ptr(120.00)); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if h, _ := holdings.Get(ctx, "owner1", "AAPL"); h != nil {
		t.Errorf("fully disposed holding must be deleted, got %+v", h)
	}
}

func TestDisposeNotFound(t *testing.T) {
	svc := newTestService(newMemHoldings(), &memSales{}, &stubCache{})

	_, err := svc.Dispose(context.Background(), "owner1", "AAPL", 1, ptr(100.00))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDisposeQuantityBounds(t *testing.T) {
	holdings := newMemHoldings()
	svc := newTestService(holdings, &memSales{}, &stubCache{})
	ctx := context.Background()

	if _, err := svc.Acquire(ctx, "owner1", "AAPL", 5, 100.00); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := svc.Dispose(ctx, "owner1", "AAPL", 0, ptr(120.00)); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("zero quantity: expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := svc.Dispose(ctx, "owner1", "AAPL", 6, ptr(120.00)); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("overselling: expected ErrInvalidQuantity, got %v", err)
	}
}

func TestDisposeUsesCachedMarketPrice(t *testing.T) {
	holdings := newMemHoldings()
	cache := &stubCache{price: 120.00, ok: true}
	svc := newTestService(holdings, &memSales{}, cache)
	ctx := context.Background()

	if _, err := svc.Acquire(ctx, "owner1", "AAPL", 5, 100.00); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	sale, err := svc.Dispose(ctx, "owner1", "AAPL", 2, nil)
	if err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if sale.SalePrice != 120.00 {
		t.Errorf("expected cached market price 120.00, got %v", sale.SalePrice)
	}
	if sale.Profit != 40.00 {
		t.Errorf("expected profit 40.00, got %v", sale.Profit)
	}
}

func TestDisposeFallsBackToAvgCost(t *testing.T) {
	// No explicit price and nothing in the cache: settle at cost basis,
	// zero profit, never an error.
	holdings := newMemHoldings()
	svc := newTestService(holdings, &memSales{}, &stubCache{ok: false})
	ctx := context.Background()

	if _, err := svc.Acquire(ctx, "owner1", "AAPL", 5, 100.00); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	sale, err := svc.Dispose(ctx, "owner1", "AAPL", 2, nil)
	if err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if sale.SalePrice != 100.00 {
		t.Errorf("expected average-cost settlement 100.00, got %v", sale.SalePrice)
	}
	if math.Abs(sale.Profit) > 1e-12 {
		t.Errorf("expected zero profit, got %v", sale.Profit)
	}
}

func TestDisposeRejectsNonPositiveExplicitPrice(t *testing.T) {
	holdings := newMemHoldings()
	svc := newTestService(holdings, &memSales{}, &stubCache{})
	ctx := context.Background()

	if _, err := svc.Acquire(ctx, "owner1", "AAPL", 5, 100.00); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := svc.Dispose(ctx, "owner1", "AAPL", 1, ptr(0)); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("expected ErrInvalidPrice, got %v", err)
	}
}

// --- Remove / sales ---

func TestRemoveNotFound(t *testing.T) {
	svc := newTestService(newMemHoldings(), &memSales{}, &stubCache{})

	if err := svc.Remove(context.Background(), "owner1", "AAPL"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSale(t *testing.T) {
	holdings := newMemHoldings()
	sales := &memSales{}
	svc := newTestService(holdings, sales, &stubCache{})
	ctx := context.Background()

	if _, err := svc.Acquire(ctx, "owner1", "AAPL", 5, 100.00); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	sale, err := svc.Dispose(ctx, "owner1", "AAPL", 1, ptr(120.00))
	if err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}

	if err := svc.DeleteSale(ctx, "owner1", sale.ID); err != nil {
		t.Fatalf("DeleteSale failed: %v", err)
	}
	if err := svc.DeleteSale(ctx, "owner1", sale.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSaleWrongOwner(t *testing.T) {
	holdings := newMemHoldings()
	sales := &memSales{}
	svc := newTestService(holdings, sales, &stubCache{})
	ctx := context.Background()

	if _, err := svc.Acquire(ctx, "owner1", "AAPL", 5, 100.00); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	sale, err := svc.Dispose(ctx, "owner1", "AAPL", 1, ptr(120.00))
	if err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}

	if err := svc.DeleteSale(ctx, "owner2", sale.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner delete must look absent, got %v", err)
	}
}
