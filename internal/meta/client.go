package meta

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pagepulse/pagepulse/internal/metrics"
	"github.com/pagepulse/pagepulse/internal/platform/retry"
)

const (
	defaultGraphVersion = "v18.0"
	httpCallTimeout     = 10 * time.Second

	// Client-side throttle below the platform's app-level rate limit.
	requestsPerSecond = 10
	requestBurst      = 20
)

// APIError is a non-2xx response from the Graph API.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api error %d (code %d): %s", e.StatusCode, e.Code, e.Message)
}

// Temporary reports whether the call is worth retrying.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client talks to the Meta Graph API. Safe for concurrent use.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker
	retryPolicy  retry.Policy
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Graph API base URL (tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(clientID, clientSecret, graphVersion string, opts ...Option) *Client {
	if graphVersion == "" {
		graphVersion = defaultGraphVersion
	}

	c := &Client{
		baseURL:      "https://graph.facebook.com/" + graphVersion,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: httpCallTimeout},
		limiter:      rate.NewLimiter(requestsPerSecond, requestBurst),
		retryPolicy: retry.Policy{
			MaxAttempts:      3,
			InitialBackoff:   500 * time.Millisecond,
			RateLimitBackoff: 5 * time.Second,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Warn("Retrying Graph API call", "attempt", attempt, "backoff", backoff, "error", err)
			},
		},
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "graph_api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerStateChanges.WithLabelValues(name, to.String()).Inc()
		},
	})

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func classifyError(err error) retry.Action {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return retry.After
		case apiErr.StatusCode >= 500:
			return retry.Retry
		default:
			return retry.Stop
		}
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return retry.Stop
	}
	// Network-level failures are transient until proven otherwise.
	return retry.Retry
}

// do executes one Graph API call: rate limit, circuit breaker, retry,
// metrics, and JSON decoding into out (which may be nil).
func (c *Client) do(ctx context.Context, method, endpoint, path string, query url.Values, accessToken string, body any, out any) error {
	if !c.limiter.Allow() {
		metrics.GraphAPIRateLimited.Inc()
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	start := time.Now()
	err := retry.DoVoid(ctx, c.retryPolicy, classifyError, func() error {
		_, err := c.breaker.Execute(func() (any, error) {
			return nil, c.doOnce(ctx, method, path, query, accessToken, body, out)
		})
		return err
	})
	metrics.GraphAPICallDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.GraphAPICallsTotal.WithLabelValues(endpoint, status).Inc()
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, accessToken string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
				Code    int    `json:"code"`
			} `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		message := errResp.Error.Message
		if message == "" {
			message = "graph api request failed"
		}
		return &APIError{StatusCode: resp.StatusCode, Code: errResp.Error.Code, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetMe fetches the profile of the token's user.
func (c *Client) GetMe(ctx context.Context, accessToken string) (*User, error) {
	query := url.Values{"fields": {"id,name,email,picture"}}
	var user User
	if err := c.do(ctx, http.MethodGet, "me", "/me", query, accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserPages lists the pages the user manages, including page tokens.
func (c *Client) GetUserPages(ctx context.Context, accessToken string) ([]Page, error) {
	query := url.Values{"fields": {"id,name,access_token,category,category_list,picture,instagram_business_account{id,name,username}"}}
	var resp struct {
		Data []Page `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "accounts", "/me/accounts", query, accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetPagePosts lists recent posts of a page with engagement summaries.
func (c *Client) GetPagePosts(ctx context.Context, pageID, accessToken string, limit int) ([]Post, error) {
	query := url.Values{
		"fields": {"id,message,story,created_time,type,likes.summary(true),comments.summary(true),shares,permalink_url,picture,full_picture"},
		"limit":  {strconv.Itoa(limit)},
	}
	var resp struct {
		Data []Post `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "posts", "/"+pageID+"/posts", query, accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetPageReviews lists recent ratings of a page.
func (c *Client) GetPageReviews(ctx context.Context, pageID, accessToken string, limit int) ([]Review, error) {
	query := url.Values{
		"fields": {"reviewer{name,id},rating,recommendation_type,review_text,created_time,open_graph_story"},
		"limit":  {strconv.Itoa(limit)},
	}
	var resp struct {
		Data []Review `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "ratings", "/"+pageID+"/ratings", query, accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetPageInsights fetches page-level metrics for the given period.
func (c *Client) GetPageInsights(ctx context.Context, pageID, accessToken string, metricNames []string, period string) ([]Insight, error) {
	query := url.Values{
		"metric": {strings.Join(metricNames, ",")},
		"period": {period},
	}
	var resp struct {
		Data []Insight `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "insights", "/"+pageID+"/insights", query, accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// PublishPost publishes to a page feed and returns the new post's ID.
func (c *Client) PublishPost(ctx context.Context, pageID, accessToken string, req PublishRequest) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "publish", "/"+pageID+"/feed", nil, accessToken, req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// DeletePost removes a post from the platform.
func (c *Client) DeletePost(ctx context.Context, postID, accessToken string) error {
	return c.do(ctx, http.MethodDelete, "delete_post", "/"+postID, nil, accessToken, nil, nil)
}

// ExchangeCode swaps an OAuth authorization code for a user access token.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*Token, error) {
	query := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"redirect_uri":  {redirectURI},
		"code":          {code},
	}
	var token Token
	if err := c.do(ctx, http.MethodGet, "oauth_token", "/oauth/access_token", query, "", nil, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// RefreshLongLivedToken exchanges a user token for a fresh long-lived one.
func (c *Client) RefreshLongLivedToken(ctx context.Context, accessToken string) (*Token, error) {
	query := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {c.clientID},
		"client_secret":     {c.clientSecret},
		"fb_exchange_token": {accessToken},
	}
	var token Token
	if err := c.do(ctx, http.MethodGet, "oauth_refresh", "/oauth/access_token", query, "", nil, &token); err != nil {
		return nil, err
	}
	return &token, nil
}
