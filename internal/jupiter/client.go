// Package jupiter is an HTTP client for the Jupiter swap aggregator's quote and
// swap-transaction endpoints.
package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Jupiter API.
const DefaultBaseURL = "https://lite-api.jup.ag"

// Quote is a route quote. Raw keeps the full response, which the swap
// endpoint requires verbatim.
type Quote struct {
	InputMint            string `json:"inputMint"`
	OutputMint           string `json:"outputMint"`
	InAmount             string `json:"inAmount"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	SlippageBps          int    `json:"slippageBps"`
	PriceImpactPct       string `json:"priceImpactPct"`

	Raw json.RawMessage `json:"-"`
}

// OutAmountUint parses OutAmount.
func (q *Quote) OutAmountUint() (uint64, error) {
	return strconv.ParseUint(q.OutAmount, 10, 64)
}

// SwapTransaction is an unsigned, base64-encoded transaction executing a quote.
type SwapTransaction struct {
	SwapTransaction           string `json:"swapTransaction"`
	LastValidBlockHeight      uint64 `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports uint64 `json:"prioritizationFeeLamports"`
}

// APIError is a non-2xx response from the aggregator.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jupiter: status %d: %s", e.StatusCode, e.Body)
}

// Client calls the aggregator API.
type Client struct {
	baseURL     string
	client      *http.Client
	limiter     *rate.Limiter
	priorityFee uint64
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.client = c
	}
}

// WithRateLimit limits outgoing requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(cl *Client) {
		if burst <= 0 {
			burst = 1
		}
		cl.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithPrioritizationFee sets the prioritization fee in lamports requested for swaps.
func WithPrioritizationFee(lamports uint64) Option {
	return func(cl *Client) {
		cl.priorityFee = lamports
	}
}

// NewClient creates a client. The default limit is one request per second.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetQuote requests a quote for swapping amount of inputMint into outputMint.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps uint16) (*Quote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.FormatUint(uint64(slippageBps), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/swap/v1/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create quote request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var quote Quote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	if quote.OutAmount == "" {
		return nil, fmt.Errorf("quote has no route: %s", string(body))
	}
	quote.Raw = body
	return &quote, nil
}

// GetSwapTransaction requests a transaction executing quote for payer, receiving
// into destination. The aggregator derives the source account from payer and the
// quote's input mint, so source is only used to reject an empty request.
func (c *Client) GetSwapTransaction(ctx context.Context, quote *Quote, payer, source, destination string) (*SwapTransaction, error) {
	if source == "" || payer == "" {
		return nil, fmt.Errorf("swap request needs payer and source account")
	}
	if quote == nil || len(quote.Raw) == 0 {
		return nil, fmt.Errorf("swap request needs a quote response")
	}

	payload := map[string]interface{}{
		"quoteResponse":           quote.Raw,
		"userPublicKey":           payer,
		"wrapAndUnwrapSol":        true,
		"destinationTokenAccount": destination,
		"dynamicComputeUnitLimit": true,
	}
	if c.priorityFee > 0 {
		payload["prioritizationFeeLamports"] = c.priorityFee
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap/v1/swap", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var swap SwapTransaction
	if err := json.Unmarshal(body, &swap); err != nil {
		return nil, fmt.Errorf("decode swap response: %w", err)
	}
	if swap.SwapTransaction == "" {
		return nil, fmt.Errorf("swap response has no transaction")
	}
	return &swap, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
