package quote

import (
	"context"
	"errors"
	"testing"

	"github.com/finfolio/finfolio/internal/common"
)

// --- Mocks ---

type mockClient struct {
	name   string
	prices map[string]float64
	err    error
	calls  int
}

func (m *mockClient) GetQuote(_ context.Context, symbol string) (float64, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.prices[symbol], nil
}

func (m *mockClient) Name() string { return m.name }

type mockBatchClient struct {
	mockClient
	batchPrices map[string]float64
	batchErr    error
	batchCalls  int
}

func (m *mockBatchClient) GetQuoteBatch(_ context.Context, _ []string) (map[string]float64, error) {
	m.batchCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	return m.batchPrices, nil
}

func newTestService(primary *mockClient, fallback *mockBatchClient) *Service {
	if primary == nil {
		return NewService(nil, fallback, common.NewSilentLogger())
	}
	return NewService(primary, fallback, common.NewSilentLogger())
}

// --- ValidateSymbol ---

func TestValidateSymbol(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"aapl", "AAPL", false},
		{" msft ", "MSFT", false},
		{"BRK.B", "BRK.B", false},
		{"BTC-USD", "BTC-USD", false},
		{"", "", true},
		{"BAD SYMBOL", "", true},
		{"WAYTOOLONGSYMBOL", "", true},
		{"$GME", "", true},
	}
	for _, tc := range cases {
		got, err := ValidateSymbol(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrBadSymbol) {
				t.Errorf("ValidateSymbol(%q): expected ErrBadSymbol, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ValidateSymbol(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ValidateSymbol(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// --- GetQuote ---

func TestGetQuotePrimaryWins(t *testing.T) {
	primary := &mockClient{name: "primary", prices: map[string]float64{"AAPL": 150.25}}
	fallback := &mockBatchClient{mockClient: mockClient{name: "fallback", prices: map[string]float64{"AAPL": 149.00}}}
	svc := newTestService(primary, fallback)

	price, err := svc.GetQuote(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if price != 150.25 {
		t.Errorf("expected primary price 150.25, got %v", price)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback should not be called when primary succeeds, got %d calls", fallback.calls)
	}
}

func TestGetQuoteFallbackOnPrimaryError(t *testing.T) {
	primary := &mockClient{name: "primary", err: errors.New("503 service unavailable")}
	fallback := &mockBatchClient{mockClient: mockClient{name: "fallback", prices: map[string]float64{"AAPL": 149.00}}}
	svc := newTestService(primary, fallback)

	price, err := svc.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if price != 149.00 {
		t.Errorf("expected fallback price 149.00, got %v", price)
	}
}

func TestGetQuoteFallbackOnZeroPrice(t *testing.T) {
	// A provider returning zero is as useless as one returning an error.
	primary := &mockClient{name: "primary", prices: map[string]float64{"AAPL": 0}}
	fallback := &mockBatchClient{mockClient: mockClient{name: "fallback", prices: map[string]float64{"AAPL": 149.00}}}
	svc := newTestService(primary, fallback)

	price, err := svc.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if price != 149.00 {
		t.Errorf("expected fallback price 149.00, got %v", price)
	}
}

func TestGetQuoteNotAvailable(t *testing.T) {
	primary := &mockClient{name: "primary", err: errors.New("down")}
	fallback := &mockBatchClient{mockClient: mockClient{name: "fallback", err: errors.New("also down")}}
	svc := newTestService(primary, fallback)

	_, err := svc.GetQuote(context.Background(), "AAPL")
	if !errors.Is(err, ErrNotAvailable) {
		t.Errorf("expected ErrNotAvailable, got %v", err)
	}
}

func TestGetQuoteNilPrimary(t *testing.T) {
	fallback := &mockBatchClient{mockClient: mockClient{name: "fallback", prices: map[string]float64{"AAPL": 149.00}}}
	svc := newTestService(nil, fallback)

	price, err := svc.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if price != 149.00 {
		t.Errorf("expected 149.00, got %v", price)
	}
}

func TestGetQuoteBadSymbol(t *testing.T) {
	primary := &mockClient{name: "primary"}
	fallback := &mockBatchClient{mockClient: mockClient{name: "fallback"}}
	svc := newTestService(primary, fallback)

	_, err := svc.GetQuote(context.Background(), "not a symbol")
	if !errors.Is(err, ErrBadSymbol) {
		t.Errorf("expected ErrBadSymbol, got %v", err)
	}
	if primary.calls != 0 || fallback.calls != 0 {
		t.Error("no provider should be called for an invalid symbol")
	}
}

// --- GetQuoteBatch ---

func TestGetQuoteBatchDegradesLeftovers(t *testing.T) {
	// The batch endpoint knows AAPL only; MSFT must degrade to the
	// single-quote path, which the primary serves.
	primary := &mockClient{name: "primary", prices: map[string]float64{"MSFT": 300.00}}
	fallback := &mockBatchClient{
		mockClient:  mockClient{name: "fallback"},
		batchPrices: map[string]float64{"AAPL": 150.00},
	}
	svc := newTestService(primary, fallback)

	prices := svc.GetQuoteBatch(context.Background(), []string{"AAPL", "MSFT"})
	if fallback.batchCalls != 1 {
		t.Errorf("expected 1 batch call, got %d", fallback.batchCalls)
	}
	if prices["AAPL"] != 150.00 {
		t.Errorf("expected AAPL 150.00, got %v", prices["AAPL"])
	}
	if prices["MSFT"] != 300.00 {
		t.Errorf("expected MSFT 300.00 from single-quote degrade, got %v", prices["MSFT"])
	}
}

func TestGetQuoteBatchPartialResult(t *testing.T) {
	primary := &mockClient{name: "primary", err: errors.New("down")}
	fallback := &mockBatchClient{
		mockClient:  mockClient{name: "fallback", err: errors.New("down")},
		batchPrices: map[string]float64{"AAPL": 150.00},
	}
	svc := newTestService(primary, fallback)

	prices := svc.GetQuoteBatch(context.Background(), []string{"AAPL", "GONE"})
	if len(prices) != 1 {
		t.Fatalf("expected partial map with 1 entry, got %v", prices)
	}
	if prices["AAPL"] != 150.00 {
		t.Errorf("expected AAPL 150.00, got %v", prices["AAPL"])
	}
}

func TestGetQuoteBatchSkipsInvalidSymbols(t *testing.T) {
	fallback := &mockBatchClient{
		mockClient:  mockClient{name: "fallback", prices: map[string]float64{"AAPL": 150.00}},
		batchPrices: map[string]float64{"AAPL": 150.00},
	}
	svc := newTestService(nil, fallback)

	prices := svc.GetQuoteBatch(context.Background(), []string{"AAPL", "bad symbol"})
	if len(prices) != 1 {
		t.Fatalf("expected 1 entry, got %v", prices)
	}
	if _, ok := prices["BAD SYMBOL"]; ok {
		t.Error("invalid symbol should be dropped from the batch")
	}
}

func TestGetQuoteBatchSingleSymbolSkipsBatchEndpoint(t *testing.T) {
	fallback := &mockBatchClient{
		mockClient: mockClient{name: "fallback", prices: map[string]float64{"AAPL": 150.00}},
	}
	svc := newTestService(nil, fallback)

	prices := svc.GetQuoteBatch(context.Background(), []string{"AAPL"})
	if fallback.batchCalls != 0 {
		t.Errorf("single symbol should use the single-quote path, got %d batch calls", fallback.batchCalls)
	}
	if prices["AAPL"] != 150.00 {
		t.Errorf("expected AAPL 150.00, got %v", prices["AAPL"])
	}
}
