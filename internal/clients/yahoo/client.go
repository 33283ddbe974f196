// Package yahoo provides a client for the Yahoo Finance quote API
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/finfolio/finfolio/internal/common"
	"github.com/finfolio/finfolio/internal/interfaces"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 8 * time.Second
	DefaultRateLimit = 30 // requests per minute

	// maxBatchSymbols caps one quote call; Yahoo rejects very long symbol lists.
	maxBatchSymbols = 50
)

// Client implements QuoteClient and BatchQuoteClient against the
// v7/finance/quote endpoint. It is the fallback provider: no API key, so it
// identifies itself with a browser user agent the way the endpoint expects.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	userAgent  string
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit in requests per minute
func WithRateLimit(requestsPerMinute int) ClientOption {
	return func(c *Client) {
		if requestsPerMinute > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Yahoo quote client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:   rate.NewLimiter(rate.Every(time.Minute/DefaultRateLimit), 1),
		logger:    common.NewSilentLogger(),
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name identifies the provider in logs.
func (c *Client) Name() string { return "yahoo" }

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Yahoo API error: %s (status: %d)", e.Message, e.StatusCode)
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string  `json:"symbol"`
			RegularMarketPrice float64 `json:"regularMarketPrice"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

// fetch performs one rate-limited quote call for the given symbol list.
func (c *Client) fetch(ctx context.Context, symbols []string) (map[string]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))

	reqURL := fmt.Sprintf("%s/v7/finance/quote?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug().Int("symbols", len(symbols)).Msg("Yahoo quote request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var qr quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if qr.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("yahoo quote error: %s", qr.QuoteResponse.Error.Description)
	}

	prices := make(map[string]float64, len(qr.QuoteResponse.Result))
	for _, r := range qr.QuoteResponse.Result {
		if r.RegularMarketPrice > 0 {
			prices[strings.ToUpper(r.Symbol)] = r.RegularMarketPrice
		}
	}
	return prices, nil
}

// GetQuote retrieves the latest price for one symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (float64, error) {
	prices, err := c.fetch(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}
	price, ok := prices[strings.ToUpper(symbol)]
	if !ok {
		return 0, fmt.Errorf("no price in Yahoo response for %s", symbol)
	}
	return price, nil
}

// GetQuoteBatch retrieves prices for many symbols in chunked calls.
// The result may be partial; symbols the endpoint had no data for are
// simply absent from the map.
func (c *Client) GetQuoteBatch(ctx context.Context, symbols []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(symbols))
	for start := 0; start < len(symbols); start += maxBatchSymbols {
		end := start + maxBatchSymbols
		if end > len(symbols) {
			end = len(symbols)
		}
		chunk, err := c.fetch(ctx, symbols[start:end])
		if err != nil {
			// A failed chunk leaves its symbols missing; earlier chunks
			// already collected still count.
			if len(prices) > 0 {
				c.logger.Warn().Err(err).Msg("Yahoo batch chunk failed")
				continue
			}
			return nil, err
		}
		for sym, p := range chunk {
			prices[sym] = p
		}
	}
	return prices, nil
}

// Ensure Client implements both quote interfaces
var (
	_ interfaces.QuoteClient      = (*Client)(nil)
	_ interfaces.BatchQuoteClient = (*Client)(nil)
)
