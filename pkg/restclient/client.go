package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
)

const (
	apiVersion      = "2024-05-01"
	maxRetries      = 5
	initialBackoff  = time.Second
	requestIDHeader = "x-ms-request-id"

	// defaultRPS bounds outbound requests to the control plane. One
	// limiter for the whole client, not per-visitor, since restclient is
	// always the caller — grounded on pkg/api/middleware.go's per-visitor
	// limiter, collapsed to a single shared bucket.
	defaultRPS   rate.Limit = 10
	defaultBurst            = 20
)

// TokenSource supplies bearer tokens for the Authorization header. Kept as
// a narrow interface here so pkg/tokensource's concrete implementations
// (default credential chain, client-credential) can be swapped freely —
// mirrors how apim_client.py accepts either TokenCredential subtype.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Instrumentation observes one REST call's lifetime. Declared here rather
// than taken as a concrete dependency on pkg/obs so restclient stays free
// of an observability import; pkg/obs.Provider satisfies this interface
// structurally.
type Instrumentation interface {
	StartRESTSpan(ctx context.Context, method, path string) (context.Context, func(err error))
}

// Client is a thin wrapper around http.Client implementing the typed
// retry/classification REST transport, grounded on
// original_source/src/apy_ops/apim_client.py and the retry-loop idiom of
// pkg/util/resiliency/client.go (generalized here to honor a Retry-After
// response header instead of a fixed exponential schedule).
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	logger     *slog.Logger
	limiter    *rate.Limiter
	instr      Instrumentation
}

// New builds a Client against baseURL (e.g.
// "https://management.azure.com/subscriptions/.../service/<name>").
func New(baseURL string, tokens TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    baseURL,
		tokens:     tokens,
		logger:     logger,
		limiter:    rate.NewLimiter(defaultRPS, defaultBurst),
	}
}

// WithRateLimit overrides the default outbound rate limit.
func (c *Client) WithRateLimit(rps rate.Limit, burst int) *Client {
	c.limiter = rate.NewLimiter(rps, burst)
	return c
}

// WithInstrumentation attaches an Instrumentation that wraps every call
// made through do() in a span plus call/error/duration counters.
func (c *Client) WithInstrumentation(instr Instrumentation) *Client {
	c.instr = instr
	return c
}

func (c *Client) authHeader(ctx context.Context, req *http.Request) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("acquire token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return nil
}

// do executes method/path with the retry envelope from spec.md §4.4: up to
// maxRetries retries (6 total attempts) whenever the response classifies as
// transient (429/412/5xx always, 409/422 conditionally per their error
// code), honoring Retry-After when present with a doubling fallback
// otherwise. Non-transient responses return immediately, matching
// apim_client.py's _request.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Response, []byte, error) {
	if c.instr != nil {
		var end func(error)
		ctx, end = c.instr.StartRESTSpan(ctx, method, path)
		var err error
		defer func() { end(err) }()
		resp, respBody, doErr := c.doUninstrumented(ctx, method, path, query, body)
		err = doErr
		if err == nil && resp != nil && resp.StatusCode >= 400 {
			err = fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		}
		return resp, respBody, doErr
	}
	return c.doUninstrumented(ctx, method, path, query, body)
}

func (c *Client) doUninstrumented(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Response, []byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	u := c.baseURL + path
	backoff := initialBackoff
	var resp *http.Response
	var respBody []byte

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
		if err != nil {
			return nil, nil, err
		}
		if err := c.authHeader(ctx, req); err != nil {
			return nil, nil, err
		}
		q := req.URL.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		if q.Get("api-version") == "" {
			q.Set("api-version", apiVersion)
		}
		req.URL.RawQuery = q.Encode()

		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		respBody, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("read response body: %w", err)
		}

		if resp.StatusCode >= 300 && attempt < maxRetries && faultFromResponse(resp, respBody).Transient {
			delay := retryDelay(resp.Header.Get("Retry-After"), backoff)
			c.logger.Warn("transient response, retrying", "path", path, "status", resp.StatusCode, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(delay):
			}
			backoff *= 2
			continue
		}
		break
	}
	return resp, respBody, nil
}

// retryDelay parses Retry-After as either an integer-seconds value or an
// HTTP-date; falls back to the caller-supplied backoff when absent or
// unparseable. A minimum of 1s is enforced per spec.md §4.4.
func retryDelay(header string, fallback time.Duration) time.Duration {
	if header == "" {
		return max1s(fallback)
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return max1s(time.Duration(secs) * time.Second)
	}
	if t, err := http.ParseTime(header); err == nil {
		return max1s(time.Until(t))
	}
	return max1s(fallback)
}

func max1s(d time.Duration) time.Duration {
	if d < time.Second {
		return time.Second
	}
	return d
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func faultFromResponse(resp *http.Response, body []byte) *Fault {
	var env errorEnvelope
	_ = json.Unmarshal(body, &env)
	return classify(resp.StatusCode, env.Error.Code, env.Error.Message, resp.Header.Get(requestIDHeader))
}

// Get implements artifact.RESTClient.
func (c *Client) Get(ctx context.Context, path string) (map[string]interface{}, error) {
	resp, body, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, faultFromResponse(resp, body)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

type listEnvelope struct {
	Value    []map[string]interface{} `json:"value"`
	NextLink string                    `json:"nextLink"`
}

// List paginates via nextLink, matching apim_client.py's list(): once the
// first page is fetched, subsequent requests use nextLink verbatim and
// drop the locally-built query parameters (nextLink already embeds them).
func (c *Client) List(ctx context.Context, path string) ([]map[string]interface{}, error) {
	var items []map[string]interface{}
	nextURL := ""
	for {
		var resp *http.Response
		var body []byte
		var err error
		if nextURL == "" {
			resp, body, err = c.do(ctx, http.MethodGet, path, nil, nil)
		} else {
			resp, body, err = c.doRawURL(ctx, http.MethodGet, nextURL)
		}
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 300 {
			return nil, faultFromResponse(resp, body)
		}
		var page listEnvelope
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		items = append(items, page.Value...)
		if page.NextLink == "" {
			break
		}
		nextURL = page.NextLink
	}
	return items, nil
}

// doRawURL is used for nextLink continuation, which is already a fully
// qualified URL with its own query string.
func (c *Client) doRawURL(ctx context.Context, method, rawURL string) (*http.Response, []byte, error) {
	backoff := initialBackoff
	var resp *http.Response
	var respBody []byte
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
		if err != nil {
			return nil, nil, err
		}
		if err := c.authHeader(ctx, req); err != nil {
			return nil, nil, err
		}
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
		}
		respBody, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("read response body: %w", err)
		}
		if resp.StatusCode >= 300 && attempt < maxRetries && faultFromResponse(resp, respBody).Transient {
			delay := retryDelay(resp.Header.Get("Retry-After"), backoff)
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(delay):
			}
			backoff *= 2
			continue
		}
		break
	}
	return resp, respBody, nil
}

// Put implements artifact.RESTClient. Returns nil, nil on an empty 2xx body
// (e.g. 201 Created with no content), matching apim_client.py's put().
func (c *Client) Put(ctx context.Context, path string, body map[string]interface{}) (map[string]interface{}, error) {
	resp, respBody, err := c.do(ctx, http.MethodPut, path, nil, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, faultFromResponse(resp, respBody)
	}
	if len(respBody) == 0 {
		return nil, nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// Delete implements artifact.RESTClient. A 404 is treated as success —
// the resource is already gone — matching apim_client.py's delete().
func (c *Client) Delete(ctx context.Context, path string) error {
	resp, body, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode >= 300 {
		return faultFromResponse(resp, body)
	}
	return nil
}

var _ artifact.RESTClient = (*Client)(nil)
