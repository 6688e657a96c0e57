// Package kenall is a client for the [kenall.jp] postal code API.
//
// [kenall.jp]: https://kenall.jp/docs/API/postalcode/
package kenall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tzrikka/kenall/pkg/postalcode"
)

const (
	DefaultBaseURL = "https://api.kenall.jp"
	DefaultTimeout = 10 * time.Second

	maxSize = 1 << 20 // 1 MiB.
)

// ErrMissingAPIKey is returned by [NewClient], and is fatal at startup.
var ErrMissingAPIKey = errors.New("kenall.jp API key is not configured")

// Client calls the kenall.jp API. It is immutable after
// construction, and safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*Client)

// WithBaseURL overrides [DefaultBaseURL]. Invalid addresses are ignored.
func WithBaseURL(addr string) Option {
	return func(c *Client) {
		if u := baseURL(addr); u != nil {
			c.baseURL = u
		}
	}
}

// WithTimeout overrides [DefaultTimeout] for each API call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit throttles outbound API calls to the given number of requests
// per second (0 = unlimited). Callers wait for their turn, unless their context
// is canceled first.
func WithRateLimit(perSecond int) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
		}
	}
}

// NewClient returns a kenall.jp API client that authenticates with the given API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{
		baseURL:    baseURL(DefaultBaseURL),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// baseURL converts the given address (e.g. "api.kenall.jp") into a URL.
// HTTPS is assumed if the address has no scheme. If the
// address is invalid, this function returns a nil reference.
func baseURL(addr string) *url.URL {
	if addr == "" {
		return nil
	}

	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "https://" + addr
	}

	// Strip any suffix after the address.
	u, err := url.Parse(addr)
	if err != nil {
		return nil
	}
	if u.Host == "" {
		return nil
	}
	u.Path = ""
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""

	return u
}

// Lookup retrieves the postal areas that match the given postal code. It returns
// [Found] or [NotFound], or an [UpstreamError] for any other HTTP status code
// or transport-level failure. It does not retry.
func (c *Client) Lookup(ctx context.Context, code postalcode.Code) (Result, error) {
	start := time.Now()
	res, err := c.lookup(ctx, code)
	observeLookup(res, err, time.Since(start))
	return res, err
}

func (c *Client) lookup(ctx context.Context, code postalcode.Code) (Result, error) {
	l := zerolog.Ctx(ctx)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &UpstreamError{Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	// Construct and send the request.
	u := c.baseURL.String() + "/v1/postalcode/" + url.PathEscape(code.Digits())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("failed to construct HTTP request: %w", err)}
	}

	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("failed to send HTTP request: %w", err)}
	}
	defer resp.Body.Close()

	// Read and parse the response.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSize))
	if err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read HTTP response body: %w", err)}
	}

	l.Debug().Str("postal_code", code.Digits()).Int("status", resp.StatusCode).Bytes("body", body).
		Msg("kenall.jp API response")

	switch resp.StatusCode {
	case http.StatusOK:
		decoded := &lookupResponse{}
		if err := json.Unmarshal(body, decoded); err != nil {
			return nil, &UpstreamError{
				StatusCode: resp.StatusCode,
				Body:       string(body),
				Err:        fmt.Errorf("failed to parse JSON in HTTP response body: %w", err),
			}
		}
		return Found{Records: decoded.Data}, nil

	case http.StatusNotFound:
		return NotFound{}, nil

	default:
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}
