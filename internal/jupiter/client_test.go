package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tokenMint = "2ivzYvjnKqA4X3dVvPKr7bctGpbxwrXbbxm44TJCpump"
	wsolMint  = "So11111111111111111111111111111111111111112"
)

func TestClient_GetQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/swap/v1/quote", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, tokenMint, q.Get("inputMint"))
		assert.Equal(t, wsolMint, q.Get("outputMint"))
		assert.Equal(t, "5000", q.Get("amount"))
		assert.Equal(t, "300", q.Get("slippageBps"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"inputMint":"` + tokenMint + `","outputMint":"` + wsolMint + `","inAmount":"5000","outAmount":"1234","otherAmountThreshold":"1197","slippageBps":300,"routePlan":[{"percent":100}]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, WithRateLimit(100, 10))
	quote, err := c.GetQuote(context.Background(), tokenMint, wsolMint, 5000, 300)
	require.NoError(t, err)

	out, err := quote.OutAmountUint()
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), out)
	assert.Equal(t, 300, quote.SlippageBps)
	assert.Contains(t, string(quote.Raw), "routePlan", "raw response must be preserved for the swap call")
}

func TestClient_GetQuote_NoRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Could not find any route","errorCode":"COULD_NOT_FIND_ANY_ROUTE"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, WithRateLimit(100, 10))
	_, err := c.GetQuote(context.Background(), tokenMint, wsolMint, 1, 50)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestClient_GetSwapTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/swap/v1/swap", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]interface{}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		assert.Equal(t, "Payer", body["userPublicKey"])
		assert.Equal(t, "DestATA", body["destinationTokenAccount"])
		assert.Equal(t, true, body["wrapAndUnwrapSol"])
		assert.Equal(t, float64(5000), body["prioritizationFeeLamports"])

		quote, ok := body["quoteResponse"].(map[string]interface{})
		if !assert.True(t, ok, "quoteResponse must be an object") {
			return
		}
		assert.Equal(t, "1234", quote["outAmount"])

		w.Write([]byte(`{"swapTransaction":"AQID","lastValidBlockHeight":279632475,"prioritizationFeeLamports":5000}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, WithRateLimit(100, 10), WithPrioritizationFee(5000))
	quote := &Quote{OutAmount: "1234", Raw: json.RawMessage(`{"outAmount":"1234"}`)}

	swap, err := c.GetSwapTransaction(context.Background(), quote, "Payer", "SourceATA", "DestATA")
	require.NoError(t, err)
	assert.Equal(t, "AQID", swap.SwapTransaction)
	assert.Equal(t, uint64(279632475), swap.LastValidBlockHeight)
}

func TestClient_GetSwapTransaction_RequiresQuote(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	_, err := c.GetSwapTransaction(context.Background(), &Quote{}, "Payer", "SourceATA", "DestATA")
	assert.Error(t, err)
}

func TestClient_RateLimitHonorsContext(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", WithRateLimit(0.001, 1))
	// drain the single token
	c.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetQuote(ctx, tokenMint, wsolMint, 1, 1)
	assert.Error(t, err)
}
