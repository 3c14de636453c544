package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"refeitorio-client/config"
)

// RequestIDHeader is set on every outbound request.
const RequestIDHeader = "X-Request-ID"

// Request describes a single backend call.
type Request struct {
	Method string
	Path   string // relative to the API base URL, e.g. "/estudante/fila-extras"
	Query  url.Values
	Body   any
	// Public requests are sent without the session token.
	Public bool
}

// Envelope is the common response wrapper of the backend.
type Envelope[T any] struct {
	Data    T               `json:"data"`
	Message string          `json:"message,omitempty"`
	Meta    json.RawMessage `json:"meta,omitempty"`
	Errors  FieldErrors     `json:"errors,omitempty"`
}

// errorBody is the shape of a failed response.
type errorBody struct {
	Message string      `json:"message"`
	Errors  FieldErrors `json:"errors"`
}

// Client is the single HTTP gateway to the meal-program backend.
type Client struct {
	baseURL   string
	student   string
	admin     string
	userAgent string
	authed    *http.Client
	public    *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// New creates a Client. When tokens is non-nil every non-public request
// carries its bearer token.
func New(cfg config.APIConfig, tokens oauth2.TokenSource, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	var transport http.RoundTripper = http.DefaultTransport
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logger.Warn("invalid proxy URL, backend calls will not use a proxy",
				zap.String("proxy", cfg.HTTPProxy), zap.Error(err))
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	public := &http.Client{Transport: transport, Timeout: timeout}
	authed := public
	if tokens != nil {
		authed = &http.Client{
			Transport: &oauth2.Transport{Source: tokens, Base: transport},
			Timeout:   timeout,
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimitPerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), burst)
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		student:   cfg.StudentPrefix,
		admin:     cfg.AdminPrefix,
		userAgent: cfg.UserAgent,
		authed:    authed,
		public:    public,
		limiter:   limiter,
		logger:    logger,
	}
}

// StudentPath joins the student role prefix with the given segments.
func (c *Client) StudentPath(segments ...string) string {
	return joinPath(c.student, segments...)
}

// AdminPath joins the admin role prefix with the given segments.
func (c *Client) AdminPath(segments ...string) string {
	return joinPath(c.admin, segments...)
}

func joinPath(prefix string, segments ...string) string {
	parts := make([]string, 0, len(segments)+1)
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	for _, s := range segments {
		if s = strings.Trim(s, "/"); s != "" {
			parts = append(parts, s)
		}
	}
	return "/" + strings.Join(parts, "/")
}

// response is a raw successful reply.
type response struct {
	header http.Header
	body   []byte
}

// send performs the call and classifies failures. Only 2xx responses are
// returned without error.
func (c *Client) send(ctx context.Context, r Request) (*response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	fail := func(kind Kind, status int, err error) *Error {
		return &Error{Kind: kind, Status: status, Method: method, Path: r.Path, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fail(KindNetwork, 0, err)
	}

	target := c.baseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		payload, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request payload: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	client := c.authed
	if r.Public {
		client = c.public
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			var urlErr *url.Error
			if errors.As(err, &urlErr) {
				err = urlErr.Err
			}
			return nil, fail(KindUnauthorized, 0, err)
		}
		c.logger.Debug("backend request failed",
			zap.String("method", method), zap.String("path", r.Path),
			zap.String("request_id", requestID), zap.Error(err))
		return nil, fail(KindNetwork, 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(KindNetwork, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err))
	}

	c.logger.Debug("backend request",
		zap.String("method", method), zap.String("path", r.Path),
		zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", requestID))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		// Non-JSON error bodies (proxies, HTML pages) leave eb empty.
		_ = json.Unmarshal(raw, &eb)
		e := fail(kindForStatus(resp.StatusCode, len(eb.Errors) > 0), resp.StatusCode, nil)
		e.Message = eb.Message
		e.Fields = eb.Errors
		return nil, e
	}

	return &response{header: resp.Header, body: raw}, nil
}

// Do performs the call and decodes the whole JSON body into out. out may be
// nil when the body is irrelevant.
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		method := r.Method
		if method == "" {
			method = http.MethodGet
		}
		return &Error{Kind: KindDecode, Status: http.StatusOK, Method: method, Path: r.Path,
			Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	return nil
}

// Fetch performs the call and decodes the standard envelope.
func Fetch[T any](ctx context.Context, c *Client, r Request) (*Envelope[T], error) {
	var env Envelope[T]
	if err := c.Do(ctx, r, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Get fetches path and returns the envelope's data.
func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	env, err := Fetch[T](ctx, c, Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		var zero T
		return zero, err
	}
	return env.Data, nil
}

// Download performs the call and returns the raw body along with the file
// name announced in Content-Disposition, if any.
func (c *Client) Download(ctx context.Context, r Request) ([]byte, string, error) {
	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, "", err
	}
	return resp.body, attachmentName(resp.header.Get("Content-Disposition")), nil
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// IsNetwork reports whether err means the backend could not be reached,
// including a cancelled or expired context.
func IsNetwork(err error) bool {
	return IsKind(err, KindNetwork) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
