package prices

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/hashbridge/ledger-gateway/internal/domain/price"
)

// Fetcher retrieves the latest prices for a set of asset ids in one call.
type Fetcher interface {
	Fetch(ctx context.Context, assetIDs []string) ([]price.Snapshot, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, assetIDs []string) ([]price.Snapshot, error)

func (f FetcherFunc) Fetch(ctx context.Context, assetIDs []string) ([]price.Snapshot, error) {
	if f == nil {
		return nil, nil
	}
	return f(ctx, assetIDs)
}

// HTTPFetcher queries a CoinGecko-compatible price oracle.
type HTTPFetcher struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewHTTPFetcher creates a fetcher against the given oracle base URL.
func NewHTTPFetcher(client *http.Client, baseURL, apiKey string) (*HTTPFetcher, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("oracle base url required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPFetcher{client: client, baseURL: baseURL, apiKey: apiKey}, nil
}

// Fetch retrieves USD price and 24h change for every asset id in one
// batched request.
func (f *HTTPFetcher) Fetch(ctx context.Context, assetIDs []string) ([]price.Snapshot, error) {
	if len(assetIDs) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("ids", strings.Join(assetIDs, ","))
	query.Set("vs_currencies", "usd")
	query.Set("include_24hr_change", "true")

	endpoint := f.baseURL + "/simple/price?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.apiKey != "" {
		req.Header.Set("x-api-key", f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read oracle response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("oracle returned invalid json")
	}

	now := time.Now().UTC()
	snaps := make([]price.Snapshot, 0, len(assetIDs))
	for _, id := range assetIDs {
		usd := gjson.GetBytes(body, id+".usd")
		if !usd.Exists() {
			continue
		}
		snaps = append(snaps, price.Snapshot{
			AssetID:   id,
			PriceUSD:  usd.Float(),
			Change24h: gjson.GetBytes(body, id+".usd_24h_change").Float(),
			UpdatedAt: now,
		})
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("oracle response contained no tracked assets")
	}
	return snaps, nil
}
