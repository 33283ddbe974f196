// Package sendgrid provides a minimal client for the SendGrid mail API
package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/finfolio/finfolio/internal/common"
	"github.com/finfolio/finfolio/internal/interfaces"
)

const (
	DefaultBaseURL = "https://api.sendgrid.com/v3"
	DefaultTimeout = 10 * time.Second
)

// Client sends transactional mail via the SendGrid REST API.
type Client struct {
	baseURL    string
	apiKey     string
	fromEmail  string
	httpClient *http.Client
	logger     *common.Logger
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

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new SendGrid client
func NewClient(apiKey, fromEmail string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		apiKey:    apiKey,
		fromEmail: fromEmail,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type mailRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type emailAddress struct {
	Email string `json:"email"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// SendWelcome sends the account-creation welcome email.
func (c *Client) SendWelcome(ctx context.Context, toEmail, username string) error {
	body := mailRequest{
		Personalizations: []personalization{{To: []emailAddress{{Email: toEmail}}}},
		From:             emailAddress{Email: c.fromEmail},
		Subject:          "Welcome to Finfolio",
		Content: []mailContent{{
			Type:  "text/plain",
			Value: fmt.Sprintf("Hi %s,\n\nYour Finfolio account is ready. Log in to start tracking your portfolio.\n", username),
		}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mail/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, string(respBody))
	}

	c.logger.Info().Str("to", toEmail).Msg("Welcome email sent")
	return nil
}

// Ensure Client implements MailClient
var _ interfaces.MailClient = (*Client)(nil)
