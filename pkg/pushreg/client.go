package pushreg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// RegisterPath is appended to the API base.
const RegisterPath = "/users/me/push/register"

// maxErrorBody is how many characters of a failed response end up in the error.
const maxErrorBody = 200

// DefaultTimeout guards a single registration request.
const DefaultTimeout = 15 * time.Second

// Request is the registration body.
type Request struct {
	CID      string `json:"cid"`
	Platform string `json:"platform"`
	AppID    string `json:"appId"`
}

// Result describes a completed request.
type Result struct {
	StatusCode int
	Duration   time.Duration
}

// Registerer performs one registration call.
type Registerer interface {
	Register(ctx context.Context, token string, req Request) (Result, error)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout sets the per-request timeout guard.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithSigningSecret signs every request body.
func WithSigningSecret(secret string) ClientOption {
	return func(cl *Client) { cl.secret = secret }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// Client calls the push registration endpoint.
type Client struct {
	http      *http.Client
	endpoint  string
	apiBase   string
	timeout   time.Duration
	secret    string
	userAgent string
	now       func() time.Time
}

// NewClient creates a client for apiBase.
func NewClient(apiBase string, opts ...ClientOption) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(apiBase), "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidURL)
	}

	c := &Client{
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		endpoint:  base + RegisterPath,
		apiBase:   base,
		timeout:   DefaultTimeout,
		userAgent: "notifykit/1.0",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the full registration URL.
func (c *Client) Endpoint() string { return c.endpoint }

// APIBase returns the normalised API base.
func (c *Client) APIBase() string { return c.apiBase }

// Register posts req. Success is any 2xx status.
func (c *Client) Register(ctx context.Context, token string, req Request) (Result, error) {
	if token == "" {
		return Result{}, ErrMissingToken
	}
	if req.CID == "" {
		return Result{}, ErrMissingClientID
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal registration: %w", err)
	}

	start := c.now()
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("User-Agent", c.userAgent)

	if c.secret != "" {
		sig, err := Sign(c.secret, body, start)
		if err != nil {
			return Result{}, err
		}
		sig.Apply(httpReq.Header)
	}

	resp, err := c.http.Do(httpReq)
	res := Result{Duration: time.Since(start)}
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return res, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return res, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	res.StatusCode = resp.StatusCode
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024*16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.ReplaceAll(string(respBody), "\n", " ")
		msg = truncate(msg, maxErrorBody)
		if msg != "" {
			return res, fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, msg)
		}
		return res, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return res, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
