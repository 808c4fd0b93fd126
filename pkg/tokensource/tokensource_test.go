package tokensource

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fakeJWT(exp time.Time) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	claims, _ := json.Marshal(map[string]interface{}{"exp": exp.Unix()})
	payload := base64.RawURLEncoding.EncodeToString(claims)
	return header + "." + payload + "."
}

func TestDefaultCredentialSourceCachesUntilSkew(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	fetches := 0
	token := fakeJWT(now.Add(5 * time.Minute))

	src := NewDefaultCredentialSource(func(key string) (string, bool) {
		fetches++
		if key == "AZURE_ACCESS_TOKEN" {
			return token, true
		}
		return "", false
	})
	src.WithClock(func() time.Time { return now })

	got, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != token {
		t.Errorf("token = %q", got)
	}

	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("Token (cached): %v", err)
	}
	if fetches != 1 {
		t.Errorf("expected 1 fetch from cache hit, got %d", fetches)
	}
}

func TestDefaultCredentialSourceRefetchesNearExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	fetches := 0
	src := NewDefaultCredentialSource(func(key string) (string, bool) {
		fetches++
		return fakeJWT(now.Add(30 * time.Second)), true
	})
	src.WithClock(func() time.Time { return now })

	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	// Token expires in 30s, inside the 60s refresh skew — must refetch.
	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if fetches != 2 {
		t.Errorf("expected refetch inside skew window, got %d fetches", fetches)
	}
}

func TestDefaultCredentialSourceMissingEnv(t *testing.T) {
	src := NewDefaultCredentialSource(func(string) (string, bool) { return "", false })
	if _, err := src.Token(context.Background()); err == nil {
		t.Fatal("expected error when AZURE_ACCESS_TOKEN is unset")
	}
}

func TestClientCredentialSourceFetchesAndCaches(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "opaque-token",
			"expires_in":   3600,
			"token_type":   "Bearer",
		})
	}))
	defer srv.Close()

	src := NewClientCredentialSource("tenant", "client", "secret", srv.Client())
	src.authorityURL = srv.URL
	src.WithClock(func() time.Time { return now })

	got, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != "opaque-token" {
		t.Errorf("token = %q", got)
	}
	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("Token (cached): %v", err)
	}
	if calls != 1 {
		t.Errorf("expected single token endpoint call, got %d", calls)
	}
}

func TestClientCredentialSourcePropagatesEndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid_client"}`)
	}))
	defer srv.Close()

	src := NewClientCredentialSource("tenant", "client", "bad-secret", srv.Client())
	src.authorityURL = srv.URL

	if _, err := src.Token(context.Background()); err == nil {
		t.Fatal("expected error from failed token exchange")
	}
}
