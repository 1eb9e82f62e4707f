package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/smartaccess/internal/common"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultTimeout applies when neither the transport nor the request sets one.
const DefaultTimeout = 10 * time.Second

type Transport struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	headers    HeaderSource
	metrics    *metrics
	now        func() time.Time
}

type Option func(*Transport)

// WithHTTPClient replaces the underlying client. Its own Timeout should be 0;
// timeouts are applied per call through the context.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.httpClient = c }
}

func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

func WithHeaderSource(src HeaderSource) Option {
	return func(t *Transport) { t.headers = src }
}

// WithRegisterer enables request metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(t *Transport) {
		if reg != nil {
			t.metrics = newMetrics(reg)
		}
	}
}

func New(baseURL string, opts ...Option) *Transport {
	t := &Transport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send performs exactly one HTTP call. A non-nil error is either an *Error
// (no response obtained), common.ErrNoSession (privileged call without
// credentials) or a request construction failure.
func (t *Transport) Send(ctx context.Context, d RequestDescriptor) (*RawResult, error) {
	timeout := t.timeout
	if d.Timeout > 0 {
		timeout = d.Timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := t.buildRequest(callCtx, d)
	if err != nil {
		return nil, err
	}

	started := t.now()
	res, err := t.do(ctx, callCtx, req)
	status := 0
	if res != nil {
		status = res.HTTPStatus
	}
	t.metrics.observe(d, status, err, t.now().Sub(started))

	return res, err
}

func (t *Transport) buildRequest(ctx context.Context, d RequestDescriptor) (*http.Request, error) {
	var body io.Reader
	if d.Body != nil {
		data, err := json.Marshal(d.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, t.baseURL+d.Path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set(common.ContentTypeHeaderName, common.JSONContentType)
	req.Header.Set(common.AcceptHeaderName, common.JSONContentType)
	req.Header.Set(common.RequestIDHeaderName, uuid.NewString())

	if d.Privileged && t.headers != nil {
		for k, vs := range t.headers.Headers() {
			req.Header[k] = append([]string(nil), vs...)
		}
	}
	for k, vs := range d.Headers {
		req.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}

	if d.Privileged && req.Header.Get(common.AuthorizationHeaderName) == "" {
		return nil, fmt.Errorf("%s %s: %w", d.Method, d.Path, common.ErrNoSession)
	}

	return req, nil
}

func (t *Transport) do(parent, call context.Context, req *http.Request) (*RawResult, error) {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, classify(parent, call, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(parent, call, err)
	}

	return &RawResult{
		HTTPStatus:  resp.StatusCode,
		Header:      resp.Header,
		Body:        data,
		ContentType: resp.Header.Get(common.ContentTypeHeaderName),
	}, nil
}
