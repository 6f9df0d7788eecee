// Package rates supplies the fiat to settlement-currency exchange rate used
// when an order is created.
package rates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// DefaultRate is the static rate used when no other source is configured.
var DefaultRate = decimal.RequireFromString("0.012")

var ErrInvalidRate = errors.New("invalid exchange rate")

type Provider interface {
	Rate(ctx context.Context) (decimal.Decimal, error)
}

type Static struct {
	rate decimal.Decimal
}

func NewStatic(rate decimal.Decimal) (*Static, error) {
	if err := check(rate); err != nil {
		return nil, err
	}
	return &Static{rate: rate}, nil
}

func (s *Static) Rate(ctx context.Context) (decimal.Decimal, error) {
	return s.rate, nil
}

// HTTP fetches the rate from an endpoint returning {"rate":"<decimal>"}.
type HTTP struct {
	url    string
	client *http.Client
}

func NewHTTP(url string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTP{url: url, client: &http.Client{Timeout: timeout}}
}

type rateResponse struct {
	Rate decimal.Decimal `json:"rate"`
}

func (h *HTTP) Rate(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build rate request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("fetch rate: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return decimal.Zero, fmt.Errorf("read rate: %w", err)
	}
	var out rateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate: %w", err)
	}
	if err := check(out.Rate); err != nil {
		return decimal.Zero, err
	}
	return out.Rate, nil
}

func check(rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidRate, rate)
	}
	return nil
}
