package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the payment provider's checkout session API. Both calls go
// through their own circuit breaker; provider 4xx answers do not trip it.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	createCB *gobreaker.CircuitBreaker[*Session]
	statusCB *gobreaker.CircuitBreaker[*Session]
}

func NewClient(cfg ClientConfig, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	create := circuitbreaker.DefaultConfig("payment-create-session")
	create.IsSuccessful = countsAsSuccess
	status := circuitbreaker.DefaultConfig("payment-session-status")
	status.IsSuccessful = countsAsSuccess

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		createCB: circuitbreaker.New[*Session](create, log),
		statusCB: circuitbreaker.New[*Session](status, log),
	}
}

func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	session, err := c.createCB.Execute(func() (*Session, error) {
		return c.do(ctx, http.MethodPost, "/v1/checkout/sessions", body)
	})
	return session, breakerError(err)
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	session, err := c.statusCB.Execute(func() (*Session, error) {
		return c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil)
	})
	return session, breakerError(err)
}

func (c *Client) GetSessionStatus(ctx context.Context, sessionID string) (domain.PaymentStatus, error) {
	session, err := c.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return session.PaymentStatus, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*Session, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build payment request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var eb errorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb)
		if eb.Error == "" {
			eb.Error = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: eb.Error}
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode payment session: %w", err)
	}
	return &session, nil
}

func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.Temporary()
	}
	// the caller gave up, the provider did not fail
	return errors.Is(err, context.Canceled)
}

func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
