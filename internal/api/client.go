package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/adamavenir/hark/internal/types"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// ErrNotFound is returned when the requested resource does not exist.
var ErrNotFound = errors.New("not found")

const (
	DefaultMentionLimit = 25
	MaxMentionLimit     = 100

	defaultTimeout = 20 * time.Second
	userAgent      = "hark (https://github.com/adamavenir/hark, dev)"
)

// APIError represents a non-2xx response from the chat API.
type APIError struct {
	Status     int
	Code       int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != 0 && e.Message != "" {
		return fmt.Sprintf("api error %d (%d): %s", e.Code, e.Status, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

// RateLimited reports whether the server asked us to slow down.
func (e *APIError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

type apiErrorPayload struct {
	Code       int     `json:"code"`
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"`
}

// Client talks to the chat REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithRateLimit bounds outgoing requests. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = int(math.Ceil(rps))
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient constructs an API client.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	normalized, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: normalized,
		token:   strings.TrimSpace(token),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NormalizeBaseURL normalizes an API base URL and ensures it has a scheme.
func NormalizeBaseURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", errors.New("api url cannot be empty")
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", errors.Wrap(err, "invalid api url")
	}
	if parsed.Scheme == "" {
		return "", errors.New("api url must include scheme (https://)")
	}
	return strings.TrimRight(value, "/"), nil
}

// MentionQuery selects a page of the current user's mentions.
type MentionQuery struct {
	Limit           int
	IncludeRoles    bool
	IncludeEveryone bool
	GuildID         *types.Snowflake
	Before          *types.Snowflake
}

// ClampMentionLimit maps a requested page size into 1..MaxMentionLimit,
// using DefaultMentionLimit for non-positive values.
func ClampMentionLimit(limit int) int {
	if limit <= 0 {
		return DefaultMentionLimit
	}
	if limit > MaxMentionLimit {
		return MaxMentionLimit
	}
	return limit
}

func (q MentionQuery) values() url.Values {
	values := url.Values{}
	values.Set("limit", strconv.Itoa(ClampMentionLimit(q.Limit)))
	values.Set("roles", strconv.FormatBool(q.IncludeRoles))
	values.Set("everyone", strconv.FormatBool(q.IncludeEveryone))
	if q.GuildID != nil {
		values.Set("guild_id", q.GuildID.String())
	}
	if q.Before != nil && q.Before.Valid() {
		values.Set("before", q.Before.String())
	}
	return values
}

// GetUserMentions fetches one page of mentions, newest first.
func (c *Client) GetUserMentions(ctx context.Context, q MentionQuery) ([]types.APIMessage, error) {
	var messages []types.APIMessage
	if err := c.doJSON(ctx, http.MethodGet, "/users/@me/mentions", q.values(), nil, &messages); err != nil {
		return nil, errors.Wrap(err, "get user mentions")
	}
	return messages, nil
}

// GetGuild fetches a guild by id. Unknown guilds return ErrNotFound.
func (c *Client) GetGuild(ctx context.Context, id types.Snowflake) (*types.Guild, error) {
	var guild types.Guild
	if err := c.doJSON(ctx, http.MethodGet, "/guilds/"+id.String(), nil, nil, &guild); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "get guild %s", id)
	}
	return &guild, nil
}

// GetCurrentUser fetches the user the token belongs to.
func (c *Client) GetCurrentUser(ctx context.Context) (*types.APIUser, error) {
	var user types.APIUser
	if err := c.doJSON(ctx, http.MethodGet, "/users/@me", nil, nil, &user); err != nil {
		return nil, errors.Wrap(err, "get current user")
	}
	return &user, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, reqBody any, respBody any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	endpoint, err := c.buildURL(path, query)
	if err != nil {
		return err
	}

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp, respData)
	}

	if respBody == nil || len(respData) == 0 {
		return nil
	}
	if err := json.Unmarshal(respData, respBody); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

func parseAPIError(resp *http.Response, data []byte) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	var payload apiErrorPayload
	if err := json.Unmarshal(data, &payload); err == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
		if payload.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(payload.RetryAfter * float64(time.Second))
		}
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	if apiErr.RetryAfter == 0 {
		if header := resp.Header.Get("Retry-After"); header != "" {
			if seconds, err := strconv.ParseFloat(header, 64); err == nil {
				apiErr.RetryAfter = time.Duration(seconds * float64(time.Second))
			}
		}
	}
	return apiErr
}

func (c *Client) buildURL(path string, query url.Values) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}
	return endpoint.String(), nil
}
