package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(
		WithBaseURL(srv.URL),
		WithRateLimit(6000),
	)
}

func TestGetQuote(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v7/finance/quote" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("expected browser user agent, got %q", ua)
		}
		w.Write([]byte(`{"quoteResponse":{"result":[{"symbol":"AAPL","regularMarketPrice":149.5}],"error":null}}`))
	})

	price, err := client.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if price != 149.5 {
		t.Errorf("expected 149.5, got %v", price)
	}
}

func TestGetQuoteMissingSymbol(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse":{"result":[],"error":null}}`))
	})

	if _, err := client.GetQuote(context.Background(), "GONE"); err == nil {
		t.Error("missing symbol must be an error")
	}
}

func TestGetQuoteAPIError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse":{"result":[],"error":{"code":"Bad Request","description":"no symbols"}}}`))
	})

	if _, err := client.GetQuote(context.Background(), "AAPL"); err == nil {
		t.Error("payload-level error must surface")
	}
}

func TestGetQuoteBatch(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		symbols := r.URL.Query().Get("symbols")
		if symbols != "AAPL,MSFT" {
			t.Errorf("unexpected symbols %q", symbols)
		}
		w.Write([]byte(`{"quoteResponse":{"result":[{"symbol":"AAPL","regularMarketPrice":149.5},{"symbol":"MSFT","regularMarketPrice":300.1}],"error":null}}`))
	})

	prices, err := client.GetQuoteBatch(context.Background(), []string{"AAPL", "MSFT"})
	if err != nil {
		t.Fatalf("GetQuoteBatch failed: %v", err)
	}
	if prices["AAPL"] != 149.5 || prices["MSFT"] != 300.1 {
		t.Errorf("unexpected prices %v", prices)
	}
}

func TestGetQuoteBatchPartial(t *testing.T) {
	// One symbol priced, one absent: the map is partial, not an error.
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse":{"result":[{"symbol":"AAPL","regularMarketPrice":149.5}],"error":null}}`))
	})

	prices, err := client.GetQuoteBatch(context.Background(), []string{"AAPL", "GONE"})
	if err != nil {
		t.Fatalf("GetQuoteBatch failed: %v", err)
	}
	if len(prices) != 1 || prices["AAPL"] != 149.5 {
		t.Errorf("expected partial map with AAPL only, got %v", prices)
	}
}

func TestGetQuoteBatchChunks(t *testing.T) {
	var calls int
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		syms := strings.Split(r.URL.Query().Get("symbols"), ",")
		if len(syms) > maxBatchSymbols {
			t.Errorf("chunk of %d exceeds cap %d", len(syms), maxBatchSymbols)
		}
		var results []string
		for _, s := range syms {
			results = append(results, fmt.Sprintf(`{"symbol":%q,"regularMarketPrice":1.0}`, s))
		}
		fmt.Fprintf(w, `{"quoteResponse":{"result":[%s],"error":null}}`, strings.Join(results, ","))
	})

	symbols := make([]string, 120)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("SYM%d", i)
	}
	prices, err := client.GetQuoteBatch(context.Background(), symbols)
	if err != nil {
		t.Fatalf("GetQuoteBatch failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 chunked calls for 120 symbols, got %d", calls)
	}
	if len(prices) != 120 {
		t.Errorf("expected 120 prices, got %d", len(prices))
	}
}
