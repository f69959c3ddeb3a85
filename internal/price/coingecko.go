package price

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// DefaultCoinGeckoURL is the simple/price endpoint for SOL in USD.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"

// CoinGecko fetches the SOL/USD price from the CoinGecko simple price API.
type CoinGecko struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries uint64
	baseDelay  time.Duration
}

// CoinGeckoOption configures a CoinGecko client.
type CoinGeckoOption func(*CoinGecko)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) CoinGeckoOption {
	return func(g *CoinGecko) { g.httpClient = c }
}

// WithRetries sets the retry count and the initial backoff delay.
func WithRetries(n uint64, baseDelay time.Duration) CoinGeckoOption {
	return func(g *CoinGecko) {
		g.maxRetries = n
		g.baseDelay = baseDelay
	}
}

// WithRequestRate limits outgoing requests. The public API allows roughly 30/min.
func WithRequestRate(perMinute int) CoinGeckoOption {
	return func(g *CoinGecko) {
		if perMinute > 0 {
			g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

// NewCoinGecko creates a client for url. An empty url uses DefaultCoinGeckoURL.
func NewCoinGecko(url string, opts ...CoinGeckoOption) *CoinGecko {
	if url == "" {
		url = DefaultCoinGeckoURL
	}
	g := &CoinGecko{
		url:        url,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(2*time.Second), 1),
		maxRetries: 3,
		baseDelay:  time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Price implements Oracle.
func (g *CoinGecko) Price(ctx context.Context) (float64, error) {
	var resp simplePriceResponse

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.baseDelay
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		err := g.submitRequest(ctx, &resp)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, g.maxRetries), ctx))
	if err != nil {
		return 0, err
	}

	usd := resp.Solana.USD
	if usd <= 0 {
		return 0, errors.Errorf("invalid sol price in response: %v", usd)
	}
	return usd, nil
}

func (g *CoinGecko) submitRequest(ctx context.Context, resp *simplePriceResponse) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, http.NoBody)
	if err != nil {
		return backoff.Permanent(errors.Wrap(err, "failed to create request"))
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := g.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to make request")
	}
	defer httpResp.Body.Close()

	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500:
		return errors.Errorf("received retriable status code: %d", httpResp.StatusCode)
	case httpResp.StatusCode != http.StatusOK:
		return backoff.Permanent(errors.Errorf("received non-200 status code: %d", httpResp.StatusCode))
	}

	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		return backoff.Permanent(errors.Wrap(err, "failed to decode response"))
	}
	return nil
}

type simplePriceResponse struct {
	Solana struct {
		USD float64 `json:"usd"`
	} `json:"solana"`
}
