package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient is a small JSON-oriented wrapper around http.Client with retries
type HTTPClient struct {
	client         *http.Client
	defaultHeaders map[string]string
	maxRetries     int
	retryDelay     time.Duration
	maxBodyBytes   int64
}

// HTTPClientOption is a function that configures the HTTPClient
type HTTPClientOption func(*HTTPClient)

// WithTimeout sets the timeout of a single attempt
func WithTimeout(timeout time.Duration) HTTPClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = timeout
	}
}

// WithDefaultHeaders sets headers sent with every request
func WithDefaultHeaders(headers map[string]string) HTTPClientOption {
	return func(c *HTTPClient) {
		c.defaultHeaders = headers
	}
}

// WithRetries configures retry behavior. Zero retries makes one attempt.
func WithRetries(maxRetries int, retryDelay time.Duration) HTTPClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = maxRetries
		c.retryDelay = retryDelay
	}
}

// NewHTTPClient creates a new HTTPClient with the given options
func NewHTTPClient(options ...HTTPClientOption) *HTTPClient {
	client := &HTTPClient{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		defaultHeaders: map[string]string{
			"Accept": "application/json",
		},
		maxRetries:   2,
		retryDelay:   250 * time.Millisecond,
		maxBodyBytes: 1 << 20,
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// Request represents an HTTP request
type Request struct {
	Method      string
	URL         string
	QueryParams map[string]string
	Headers     map[string]string
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Error represents an HTTP error status
type Error struct {
	StatusCode int
	Message    string
	Response   *Response
}

func (e *Error) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Message)
}

// Do executes req, retrying transport failures and 5xx responses
func (c *HTTPClient) Do(ctx context.Context, req Request) (*Response, error) {
	target, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", req.URL, err)
	}
	if len(req.QueryParams) > 0 {
		q := target.Query()
		for k, v := range req.QueryParams {
			q.Set(k, v)
		}
		target.RawQuery = q.Encode()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		resp, err := c.once(ctx, method, target.String(), req.Headers)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// Client errors will not change on retry
		var httpErr *Error
		if errors.As(err, &httpErr) && httpErr.StatusCode < 500 {
			return resp, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *HTTPClient) once(ctx context.Context, method, target string, headers map[string]string) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range c.defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	response := &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	if resp.StatusCode >= 400 {
		return response, &Error{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("request failed with status code %d", resp.StatusCode),
			Response:   response,
		}
	}

	return response, nil
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, target string, headers map[string]string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: target, Headers: headers})
}

// DecodeJSON decodes the response body into the target
func (r *Response) DecodeJSON(target interface{}) error {
	if len(r.Body) == 0 {
		return errors.New("empty response body")
	}
	return json.Unmarshal(r.Body, target)
}

// IsSuccess returns true if the status code is between 200 and 299
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}
