// Package tokensource implements the two bearer-token acquisition
// strategies the control plane client accepts, grounded on
// original_source/src/apy_ops/apim_client.py's _get_token (token caching,
// 60s-early refresh) and pkg/credentials/rotation.go's clock-injected
// expiry tracking idiom.
package tokensource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshSkew mirrors apim_client.py's "now < expiry - 60" early-refresh
// window: a cached token is treated as expired 60s before its real expiry
// so an in-flight request never races the control plane's own clock skew.
const refreshSkew = 60 * time.Second

const defaultScope = "https://management.azure.com/.default"
const defaultAuthorityHost = "https://login.microsoftonline.com"

// cached holds the common token-caching state shared by both sources,
// matching _get_token's self._token/self._token_expiry pair.
type cached struct {
	mu      sync.Mutex
	token   string
	expiry  time.Time
	clock   func() time.Time
	fetcher func(ctx context.Context) (string, time.Time, error)
}

func newCached(fetch func(ctx context.Context) (string, time.Time, error)) *cached {
	return &cached{clock: time.Now, fetcher: fetch}
}

// WithClock overrides the clock for testing.
func (c *cached) WithClock(clock func() time.Time) *cached {
	c.clock = clock
	return c
}

func (c *cached) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if c.token != "" && now.Before(c.expiry.Add(-refreshSkew)) {
		return c.token, nil
	}

	token, expiry, err := c.fetcher(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expiry = expiry
	return token, nil
}

// expiryFromJWT extracts the "exp" claim from an access token that happens
// to be a JWT (Azure AD access tokens are). Falls back to "now + fallback"
// when the token can't be parsed as a JWT (some token endpoints issue
// opaque tokens) — this reads claims only, it never verifies a signature,
// since the client has no business validating a token it is about to
// present as its own credential.
func expiryFromJWT(rawToken string, fallback time.Duration, now time.Time) time.Time {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(rawToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return now.Add(fallback)
}

// DefaultCredentialSource mirrors DefaultAzureCredential: in this exercise
// repo it resolves a token from the AZURE_ACCESS_TOKEN environment
// variable (set by whatever ambient credential helper runs ahead of this
// tool), since a full managed-identity/CLI credential chain is out of
// scope per SPEC_FULL.md §1 (auth token acquisition providers are
// abstracted behind TokenSource, not implemented here).
type DefaultCredentialSource struct {
	*cached
	envLookup func(string) (string, bool)
}

// NewDefaultCredentialSource builds a TokenSource reading from the
// environment. envLookup defaults to os.LookupEnv; tests inject a fake.
func NewDefaultCredentialSource(envLookup func(string) (string, bool)) *DefaultCredentialSource {
	s := &DefaultCredentialSource{envLookup: envLookup}
	s.cached = newCached(s.fetch)
	return s
}

func (s *DefaultCredentialSource) fetch(ctx context.Context) (string, time.Time, error) {
	token, ok := s.envLookup("AZURE_ACCESS_TOKEN")
	if !ok || token == "" {
		return "", time.Time{}, fmt.Errorf("tokensource: AZURE_ACCESS_TOKEN not set and no managed-identity provider configured")
	}
	expiry := expiryFromJWT(token, time.Hour, s.clock())
	return token, expiry, nil
}

// ClientCredentialSource implements the OAuth2 client-credentials grant
// against Azure AD, matching apim_client.py's ClientSecretCredential
// branch (client_id/client_secret/tenant_id all present).
type ClientCredentialSource struct {
	*cached
	httpClient   *http.Client
	authorityURL string
	tenantID     string
	clientID     string
	clientSecret string
	scope        string
}

// NewClientCredentialSource builds a TokenSource that exchanges a client
// secret for a bearer token via the tenant's v2.0 token endpoint.
func NewClientCredentialSource(tenantID, clientID, clientSecret string, httpClient *http.Client) *ClientCredentialSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	s := &ClientCredentialSource{
		httpClient:   httpClient,
		authorityURL: defaultAuthorityHost,
		tenantID:     tenantID,
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        defaultScope,
	}
	s.cached = newCached(s.fetch)
	return s
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (s *ClientCredentialSource) fetch(ctx context.Context) (string, time.Time, error) {
	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", s.authorityURL, s.tenantID)
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"scope":         {s.scope},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("tokensource: token request failed: %w", err)
	}
	defer resp.Body.Close()

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", time.Time{}, fmt.Errorf("tokensource: decode token response: %w", err)
	}
	if resp.StatusCode >= 300 || body.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("tokensource: token endpoint returned status %d", resp.StatusCode)
	}

	now := s.clock()
	expiry := now.Add(time.Duration(body.ExpiresIn) * time.Second)
	if body.ExpiresIn == 0 {
		expiry = expiryFromJWT(body.AccessToken, time.Hour, now)
	}
	return body.AccessToken, expiry, nil
}
