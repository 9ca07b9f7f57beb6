// Package provider implements the outbound client for the banking provider's
// API. The reconciliation core only consumes the status fields of each rail's
// resource; the rest of the provider wire format is ignored.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/pagstream-payments-hub/internal/config"
	"github.com/pagstream-payments-hub/internal/domain/transaction"
)

var (
	// ErrUnreachable covers network failures and deadline misses. Callers in
	// the read path degrade to last-known-good local state on this error.
	ErrUnreachable = errors.New("banking provider unreachable")

	// ErrNotFound means the provider has no record for the authentication code
	ErrNotFound = errors.New("transaction not found at provider")
)

// StatusResult is the slice of the provider response the reconciliation
// core consumes
type StatusResult struct {
	Status    string     `json:"status"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// StatusClient queries the provider for the current status of a financial event
type StatusClient interface {
	GetStatus(ctx context.Context, family transaction.RailFamily, authenticationCode string) (*StatusResult, error)
}

// Client talks to the provider over HTTP with a bounded per-request timeout
type Client struct {
	httpClient *fasthttp.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewClient builds the provider client from configuration
func NewClient(logger *slog.Logger, cfg *config.ProviderConfig) *Client {
	return &Client{
		httpClient: &fasthttp.Client{
			ReadTimeout:         cfg.RequestTimeout,
			WriteTimeout:        cfg.RequestTimeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		timeout: cfg.RequestTimeout,
		logger:  logger,
	}
}

// statusPath returns the provider endpoint that reports status for a rail family
func statusPath(family transaction.RailFamily, authenticationCode string) (string, error) {
	switch family {
	case transaction.RailPix:
		return "/pix/entries/" + authenticationCode, nil
	case transaction.RailTed:
		return "/fund-transfers/" + authenticationCode, nil
	case transaction.RailBoleto:
		return "/bankslip/" + authenticationCode, nil
	case transaction.RailBillPayment:
		return "/bill-payment/" + authenticationCode, nil
	default:
		return "", fmt.Errorf("unknown rail family: %s", family)
	}
}

// GetStatus fetches the provider's current view of a financial event. The
// call is bounded by the configured timeout (or the context deadline, if
// sooner) so it can never block a read path indefinitely.
func (c *Client) GetStatus(ctx context.Context, family transaction.RailFamily, authenticationCode string) (*StatusResult, error) {
	path, err := statusPath(family, authenticationCode)
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetContentType("application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}

	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		c.logger.Warn("Provider status request failed",
			"family", string(family),
			"authentication_code", authenticationCode,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	statusCode := resp.StatusCode()
	if statusCode == fasthttp.StatusNotFound {
		return nil, ErrNotFound
	}
	if statusCode != fasthttp.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrUnreachable, statusCode)
	}

	var result StatusResult
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode provider status response: %w", err)
	}
	if result.Status == "" {
		return nil, fmt.Errorf("provider status response missing status field")
	}

	return &result, nil
}
