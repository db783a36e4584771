package prices

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcherParsesBatchedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin,hedera-hashgraph", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"bitcoin": {"usd": 64000.5, "usd_24h_change": -1.2},
			"hedera-hashgraph": {"usd": 0.071, "usd_24h_change": 3.4}
		}`))
	}))
	defer server.Close()

	fetcher, err := NewHTTPFetcher(server.Client(), server.URL, "")
	require.NoError(t, err)

	snaps, err := fetcher.Fetch(context.Background(), []string{"bitcoin", "hedera-hashgraph"})
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	assert.Equal(t, "bitcoin", snaps[0].AssetID)
	assert.Equal(t, 64000.5, snaps[0].PriceUSD)
	assert.Equal(t, -1.2, snaps[0].Change24h)
	assert.Equal(t, 0.071, snaps[1].PriceUSD)
	assert.False(t, snaps[0].UpdatedAt.IsZero())
}

func TestHTTPFetcherReportsOracleFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	fetcher, err := NewHTTPFetcher(server.Client(), server.URL, "")
	require.NoError(t, err)

	_, err = fetcher.Fetch(context.Background(), []string{"bitcoin"})
	assert.Error(t, err)
}

func TestHTTPFetcherSkipsUnknownAssets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bitcoin": {"usd": 100}}`))
	}))
	defer server.Close()

	fetcher, err := NewHTTPFetcher(server.Client(), server.URL, "")
	require.NoError(t, err)

	snaps, err := fetcher.Fetch(context.Background(), []string{"bitcoin", "unlisted-coin"})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "bitcoin", snaps[0].AssetID)
}
