// Package client provides the outbound JSON HTTP client used by the
// http-request and summarize-file actions.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	applog "github.com/hexaflow/engine/pkg/log"
)

type (
	// Auth selects the authentication scheme for an outbound request
	Auth struct {
		Type     string
		Token    string
		Key      string
		Header   string
		Username string
		Password string
	}

	// Request describes one outbound HTTP call
	Request struct {
		Method  string
		URL     string
		Headers map[string]string
		Body    any
		Auth    Auth
		Timeout time.Duration
	}

	// Response captures the result of an outbound call. Body holds the
	// parsed JSON value when the response is JSON, else the raw string.
	Response struct {
		StatusCode int               `json:"status"`
		Headers    map[string]string `json:"headers"`
		Body       any               `json:"body"`
	}

	// Client issues outbound HTTP requests with a default timeout that
	// individual requests may override
	Client struct {
		httpClient     *http.Client
		defaultTimeout time.Duration
	}
)

const (
	AuthNone   = "none"
	AuthBearer = "bearer"
	AuthAPIKey = "api-key"
	AuthBasic  = "basic"

	defaultAPIKeyHeader = "X-API-Key"
	userAgent           = "Hexaflow-Engine/1.0"
)

var (
	ErrRequestURLEmpty = errors.New("request URL empty")
	ErrUnknownAuthType = errors.New("unknown auth type")
)

// New creates an outbound HTTP client with the given default timeout
func New(defaultTimeout time.Duration) *Client {
	return &Client{
		httpClient:     &http.Client{},
		defaultTimeout: defaultTimeout,
	}
}

// Do executes the request and captures the response. Non-2xx statuses are
// not errors; callers inspect StatusCode.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.URL == "" {
		return nil, ErrRequestURLEmpty
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, strings.ToUpper(req.Method), req.URL, body,
	)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if err := applyAuth(httpReq, req.Auth); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	dur := time.Since(start)

	if err != nil {
		slog.Error("Outbound HTTP request failed",
			slog.String("url", req.URL),
			slog.Duration("duration", dur),
			applog.Error(err))
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       decodeBody(respBody),
	}, nil
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case string:
		if b == "" {
			return nil, nil
		}
		return strings.NewReader(b), nil
	case []byte:
		return bytes.NewReader(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}

func decodeBody(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	var parsed any
	if err := json.Unmarshal(data, &parsed); err == nil {
		return parsed
	}
	return string(data)
}

func applyAuth(req *http.Request, auth Auth) error {
	switch auth.Type {
	case "", AuthNone:
		return nil
	case AuthBearer:
		token := strings.TrimPrefix(auth.Token, "Bearer ")
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	case AuthAPIKey:
		header := auth.Header
		if header == "" {
			header = defaultAPIKeyHeader
		}
		req.Header.Set(header, auth.Key)
		return nil
	case AuthBasic:
		req.SetBasicAuth(auth.Username, auth.Password)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAuthType, auth.Type)
	}
}
