package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/kunmmi/zagama/internal/token"
	"github.com/kunmmi/zagama/logger"
)

// errNotFound marks an HTTP 404: the source simply does not know the token.
// Callers translate it into "no fields" / "no candidate", not a failure.
var errNotFound = errors.New("not found")

// apiClient is the shared transport for all HTTP providers: one client with
// a per-call deadline, a token-bucket limiter, and uniform error
// classification into the closed ProviderError kinds.
type apiClient struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Log
}

func newAPIClient(name string, timeout time.Duration, rps float64, burst int) *apiClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &apiClient{
		name:    name,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     logger.GetLogger(),
	}
}

// getJSON issues a rate-limited GET and decodes the body into out.
func (c *apiClient) getJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return token.NewProviderError(c.name, token.ErrKindUnreachable, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(req, out)
}

// postJSON issues a rate-limited POST with a JSON body.
func (c *apiClient) postJSON(ctx context.Context, url string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return token.NewProviderError(c.name, token.ErrKindMalformed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return token.NewProviderError(c.name, token.ErrKindUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out interface{}) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return c.classifyTransport(err)
	}
	req.Header.Set("User-Agent", "zagama/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return c.classifyTransport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return errNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return token.NewProviderError(c.name, token.ErrKindRateLimited, fmt.Errorf("HTTP %s", resp.Status))
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return token.NewProviderError(c.name, token.ErrKindUnreachable, fmt.Errorf("unexpected status %s", resp.Status))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return token.NewProviderError(c.name, token.ErrKindMalformed, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *apiClient) classifyTransport(err error) *token.ProviderError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return token.NewProviderError(c.name, token.ErrKindTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return token.NewProviderError(c.name, token.ErrKindTimeout, err)
	default:
		return token.NewProviderError(c.name, token.ErrKindUnreachable, err)
	}
}
