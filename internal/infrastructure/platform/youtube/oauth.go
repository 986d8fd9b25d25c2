package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultTokenURL = "https://oauth2.googleapis.com/token"

// expirySkew refreshes tokens slightly early so an access token never
// expires mid-request.
const expirySkew = 30 * time.Second

// OAuthConfig holds the refresh-token credentials for the platform API.
type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	TokenURL     string `yaml:"token_url"`
}

// tokenSource exchanges a long-lived refresh token for short-lived
// access tokens, caching them until close to expiry.
type tokenSource struct {
	cfg    OAuthConfig
	client *http.Client

	mu          sync.Mutex
	accessToken string
	expiry      time.Time
}

func newTokenSource(cfg OAuthConfig, client *http.Client) *tokenSource {
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	return &tokenSource{cfg: cfg, client: client}
}

func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.accessToken != "" && time.Now().Before(ts.expiry.Add(-expirySkew)) {
		return ts.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {ts.cfg.ClientID},
		"client_secret": {ts.cfg.ClientSecret},
		"refresh_token": {ts.cfg.RefreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("token exchange: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned no access token")
	}

	ts.accessToken = payload.AccessToken
	ts.expiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return ts.accessToken, nil
}
