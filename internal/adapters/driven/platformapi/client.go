// Package platformapi implements the outbound HTTP gateway to social
// platform OAuth endpoints and APIs. Platform quirks are interpreted
// from the registry's strategy table rather than branched per call
// site.
package platformapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driven"
	"github.com/pulsehub-labs/pulsehub-core/internal/platforms"
)

// Ensure Client implements the gateway ports
var (
	_ driven.OAuthGateway = (*Client)(nil)
	_ driven.PlatformAPI  = (*Client)(nil)
)

const (
	defaultTimeout = 10 * time.Second
	retryBackoff   = 500 * time.Millisecond
)

// Client is the HTTP gateway to platform OAuth and API endpoints.
type Client struct {
	registry   *platforms.Registry
	httpClient *http.Client
}

// NewClient creates a platform gateway backed by the registry.
func NewClient(registry *platforms.Registry) *Client {
	return &Client{
		registry:   registry,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithHTTPClient creates a gateway with a custom HTTP client,
// used in tests against httptest servers.
func NewClientWithHTTPClient(registry *platforms.Registry, httpClient *http.Client) *Client {
	return &Client{registry: registry, httpClient: httpClient}
}

// BuildAuthURL constructs the platform's authorization URL with state
// and, where the platform requires PKCE, the code challenge.
func (c *Client) BuildAuthURL(platform domain.Platform, state, codeChallenge string) (string, error) {
	cfg, err := c.registry.Get(platform)
	if err != nil {
		return "", err
	}
	creds, err := c.registry.GetCredentials(platform)
	if err != nil {
		return "", err
	}

	params := url.Values{
		"client_id":     {creds.ClientID},
		"redirect_uri":  {creds.RedirectURI},
		"response_type": {"code"},
		"state":         {state},
		"scope":         {strings.Join(cfg.DefaultScopes, " ")},
	}
	if cfg.Exchange.RequiresPKCE && codeChallenge != "" {
		params.Set("code_challenge", codeChallenge)
		params.Set("code_challenge_method", "S256")
	}

	sep := "?"
	if strings.Contains(cfg.AuthorizationURL, "?") {
		sep = "&"
	}
	return cfg.AuthorizationURL + sep + params.Encode(), nil
}

// tokenReply is the wire shape shared by exchange and refresh replies.
type tokenReply struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// Exchange trades an authorization code for tokens. Never retried:
// codes are single-use and expire within minutes.
func (c *Client) Exchange(ctx context.Context, platform domain.Platform, code, codeVerifier string) (*driven.OAuthToken, error) {
	cfg, err := c.registry.Get(platform)
	if err != nil {
		return nil, err
	}
	creds, err := c.registry.GetCredentials(platform)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"code":         {code},
		"redirect_uri": {creds.RedirectURI},
		"grant_type":   {"authorization_code"},
	}
	if cfg.Exchange.RequiresPKCE && codeVerifier != "" {
		params.Set("code_verifier", codeVerifier)
	}

	reply, status, err := c.tokenRequest(ctx, cfg.TokenURL, cfg.Exchange, creds, params)
	if err != nil {
		return nil, &domain.ExchangeError{Platform: platform, Code: "request_failed", Description: err.Error()}
	}
	if status < 200 || status >= 300 || reply.Error != "" {
		code := reply.Error
		if code == "" {
			code = fmt.Sprintf("http_%d", status)
		}
		return nil, &domain.ExchangeError{Platform: platform, Code: code, Description: reply.ErrorDesc}
	}
	if reply.AccessToken == "" {
		return nil, &domain.ExchangeError{Platform: platform, Code: "empty_token", Description: "token endpoint returned no access_token"}
	}

	return replyToToken(reply), nil
}

// Refresh trades a refresh token for new tokens, retrying once on
// 5xx/network failure since refresh is idempotent on the platform side.
func (c *Client) Refresh(ctx context.Context, platform domain.Platform, refreshToken string) (*driven.OAuthToken, error) {
	cfg, err := c.registry.Get(platform)
	if err != nil {
		return nil, err
	}
	creds, err := c.registry.GetCredentials(platform)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	reply, status, err := c.tokenRequest(ctx, cfg.RefreshURL, cfg.Exchange, creds, params)
	if err != nil || status >= 500 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoff):
		}
		reply, status, err = c.tokenRequest(ctx, cfg.RefreshURL, cfg.Exchange, creds, params)
	}
	if err != nil {
		return nil, &domain.RefreshError{Platform: platform, Code: "request_failed", Description: err.Error()}
	}
	if status < 200 || status >= 300 || reply.Error != "" {
		code := reply.Error
		if code == "" {
			code = fmt.Sprintf("http_%d", status)
		}
		return nil, &domain.RefreshError{Platform: platform, Code: code, Description: reply.ErrorDesc}
	}
	if reply.AccessToken == "" {
		return nil, &domain.RefreshError{Platform: platform, Code: "empty_token", Description: "refresh endpoint returned no access_token"}
	}

	return replyToToken(reply), nil
}

// tokenRequest performs one token-endpoint round trip per the
// platform's exchange style. Returns the parsed reply and HTTP status.
func (c *Client) tokenRequest(ctx context.Context, endpoint string, style platforms.ExchangeStyle, creds *platforms.Credentials, params url.Values) (*tokenReply, int, error) {
	if !style.CredsInBasicHeader {
		params.Set("client_id", creds.ClientID)
		params.Set("client_secret", creds.ClientSecret)
	} else {
		params.Set("client_id", creds.ClientID)
	}

	var req *http.Request
	var err error
	if style.Method == http.MethodGet || style.CredsInQuery {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint+sep+params.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if style.CredsInBasicHeader {
		basic := base64.StdEncoding.EncodeToString([]byte(creds.ClientID + ":" + creds.ClientSecret))
		req.Header.Set("Authorization", "Basic "+basic)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	var reply tokenReply
	if err := json.Unmarshal(body, &reply); err != nil {
		// Non-JSON error pages still need a readable reply
		reply.Error = "invalid_response"
		reply.ErrorDesc = truncate(string(body), 200)
	}
	return &reply, resp.StatusCode, nil
}

// FetchProfile fetches the connected account's identity from the
// platform's profile endpoint.
func (c *Client) FetchProfile(ctx context.Context, platform domain.Platform, accessToken string) (*driven.ProfileInfo, error) {
	cfg, err := c.registry.Get(platform)
	if err != nil {
		return nil, err
	}

	path, ok := cfg.Operations[domain.OperationProfile]
	if !ok {
		path = cfg.ProbePath
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.APIBaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setAPIHeaders(req, cfg, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile fetch failed with status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	// Platforms disagree on field names for the account identity
	var profile struct {
		ID       string `json:"id"`
		Sub      string `json:"sub"`
		Name     string `json:"name"`
		Username string `json:"username"`
		Data     *struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	info := &driven.ProfileInfo{ID: profile.ID, Name: profile.Name}
	if profile.Data != nil {
		info.ID = profile.Data.ID
		info.Name = profile.Data.Name
		if info.Name == "" {
			info.Name = profile.Data.Username
		}
	}
	if info.ID == "" {
		info.ID = profile.Sub
	}
	if info.Name == "" {
		info.Name = profile.Username
	}
	return info, nil
}

// Call performs an authenticated API request for a logical operation,
// retrying once on 5xx/network failure.
func (c *Client) Call(ctx context.Context, platform domain.Platform, op domain.Operation, accessToken string, payload json.RawMessage) (*driven.PlatformResponse, error) {
	cfg, err := c.registry.Get(platform)
	if err != nil {
		return nil, err
	}
	path, err := c.registry.ResolveOperation(platform, op)
	if err != nil {
		return nil, err
	}

	method := http.MethodGet
	if op == domain.OperationPost {
		method = http.MethodPost
	}

	resp, err := c.apiRequest(ctx, cfg, method, path, accessToken, payload)
	if err != nil || resp.StatusCode >= 500 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoff):
		}
		resp, err = c.apiRequest(ctx, cfg, method, path, accessToken, payload)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", platform, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.DispatchError{
			Platform:   platform,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Body:       string(resp.Body),
		}
	}
	return resp, nil
}

// Probe issues the platform's cheap identity request. 401/403 means
// the token was rejected; any other failure says nothing about it.
func (c *Client) Probe(ctx context.Context, platform domain.Platform, accessToken string) (bool, error) {
	cfg, err := c.registry.Get(platform)
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.APIBaseURL+cfg.ProbePath, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	c.setAPIHeaders(req, cfg, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	default:
		return false, fmt.Errorf("probe failed with status %d", resp.StatusCode)
	}
}

func (c *Client) apiRequest(ctx context.Context, cfg *platforms.Config, method, path, accessToken string, payload json.RawMessage) (*driven.PlatformResponse, error) {
	var bodyReader io.Reader
	if len(payload) > 0 && method != http.MethodGet {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.APIBaseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setAPIHeaders(req, cfg, accessToken)
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &driven.PlatformResponse{
		StatusCode: resp.StatusCode,
		Body:       body,
		RateLimit:  parseRateLimit(cfg, resp.Header),
	}, nil
}

func (c *Client) setAPIHeaders(req *http.Request, cfg *platforms.Config, accessToken string) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	for name, value := range cfg.ExtraAPIHeaders {
		req.Header.Set(name, value)
	}
}

// parseRateLimit reads the platform's rate-limit headers. Platforms
// without such headers yield nil, which leaves stored bookkeeping
// untouched.
func parseRateLimit(cfg *platforms.Config, header http.Header) *driven.RateLimitInfo {
	if cfg.RateLimitRemainingHeader == "" || cfg.RateLimitResetHeader == "" {
		return nil
	}
	remainingRaw := header.Get(cfg.RateLimitRemainingHeader)
	resetRaw := header.Get(cfg.RateLimitResetHeader)
	if remainingRaw == "" || resetRaw == "" {
		return nil
	}

	remaining, err := strconv.Atoi(remainingRaw)
	if err != nil {
		return nil
	}
	resetUnix, err := strconv.ParseInt(resetRaw, 10, 64)
	if err != nil {
		return nil
	}

	return &driven.RateLimitInfo{
		Remaining: remaining,
		Reset:     time.Unix(resetUnix, 0),
	}
}

func replyToToken(reply *tokenReply) *driven.OAuthToken {
	return &driven.OAuthToken{
		AccessToken:  reply.AccessToken,
		RefreshToken: reply.RefreshToken,
		TokenType:    reply.TokenType,
		Scope:        reply.Scope,
		ExpiresIn:    reply.ExpiresIn,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
