package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const RequestIDHeader = "X-Request-ID"

// TokenSource is the part of the token store the request pipeline needs.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
	IsTokenExpired(token string) bool
	RemoveToken(ctx context.Context) error
}

// Client is the request pipeline shared by every API call. It attaches the bearer token,
// retries transport failures with exponential backoff, clears the session on 401 and
// normalizes every failure into an *APIError.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	timeout        time.Duration
	tokens         TokenSource
	onUnauthorized func(ctx context.Context)
	maxRetries     int
	backoffBase    time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
	nowFunc        func() time.Time
	metrics        *Metrics
}

// Request describes one logical API call. Body is encoded as JSON when not nil.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Response is a successful (2xx) reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	Attempts   int
}

// Decode unmarshals the JSON body into out. An empty body leaves out untouched.
func (r *Response) Decode(out any) error {
	if len(r.Body) == 0 || out == nil {
		return nil
	}
	return json.Unmarshal(r.Body, out)
}

func New(baseURL string, tokens TokenSource, options ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "[client.New] invalid base url")
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.Errorf("[client.New] base url %q must be absolute", baseURL)
	}
	if tokens == nil {
		return nil, errors.New("[client.New] token source is required")
	}

	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		timeout:     DefaultTimeout,
		tokens:      tokens,
		maxRetries:  DefaultMaxRetries,
		backoffBase: DefaultBackoffBase,
		sleep:       sleepContext,
		nowFunc:     time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	httpClient := http.Client{}
	if c.httpClient != nil {
		httpClient = *c.httpClient
	}
	if c.timeout > 0 {
		httpClient.Timeout = c.timeout
	}
	c.httpClient = &httpClient
	return c, nil
}

// Do runs req through the pipeline. Every failure is an *APIError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	var body []byte
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &APIError{Status: http.StatusInternalServerError, Message: err.Error(), err: err}
		}
		body = encoded
	}

	header := c.outboundHeader(ctx, req.Header, body != nil)
	return c.send(ctx, req, header, body, newRetryState(c.maxRetries))
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.call(ctx, http.MethodPost, path, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.call(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.Do(ctx, Request{Method: method, Path: path, Body: in})
	if err != nil {
		return err
	}
	if err := resp.Decode(out); err != nil {
		return &APIError{
			Status:  resp.StatusCode,
			Message: "invalid response body",
			Data:    rawPayload(resp.Body),
			err:     err,
		}
	}
	return nil
}

// outboundHeader builds the header set shared by every attempt of one logical request.
func (c *Client) outboundHeader(ctx context.Context, extra http.Header, hasBody bool) http.Header {
	header := http.Header{}
	for k, v := range extra {
		header[k] = append([]string(nil), v...)
	}
	header.Set("Accept", "application/json")
	if hasBody {
		header.Set("Content-Type", "application/json")
	}
	if header.Get(RequestIDHeader) == "" {
		header.Set(RequestIDHeader, uuid.New().String())
	}

	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Could not read session token, sending request without it")
		return header
	}
	if token != "" && !c.tokens.IsTokenExpired(token) {
		bearer := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
		req := &http.Request{Header: header}
		bearer.SetAuthHeader(req)
	}
	return header
}

func (c *Client) send(ctx context.Context, req Request, header http.Header, body []byte, state retryState) (*Response, error) {
	httpReq, err := c.newHTTPRequest(ctx, req, header, body)
	if err != nil {
		return nil, &APIError{Status: http.StatusInternalServerError, Message: err.Error(), err: err}
	}

	start := c.nowFunc()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.retry(ctx, req, header, body, state, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, newTransportError(err)
	}
	elapsed := c.nowFunc().Sub(start)
	c.metrics.observe(req.Method, httpResp.StatusCode, elapsed.Seconds())

	if httpResp.StatusCode == http.StatusUnauthorized {
		c.clearSession(ctx, req)
		return nil, newResponseError(httpResp.StatusCode, data)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, newResponseError(httpResp.StatusCode, data)
	}

	log.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", httpResp.StatusCode).
		Dur("elapsed", elapsed).
		Str("request_id", header.Get(RequestIDHeader)).
		Msg("API request completed")

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		Duration:   elapsed,
		Attempts:   state.attempt + 1,
	}, nil
}

// retry re-issues the identical request after a transport failure until the budget runs out.
func (c *Client) retry(ctx context.Context, req Request, header http.Header, body []byte, state retryState, cause error) (*Response, error) {
	if ctx.Err() != nil {
		return nil, newTransportError(ctx.Err())
	}
	if !state.canRetry() {
		log.Err(cause).Str("path", req.Path).Int("attempts", state.attempt+1).Msg("API request failed, retries exhausted")
		return nil, newTransportError(cause)
	}

	next := state.next()
	delay := next.backoff(c.backoffBase)
	log.Warn().Err(cause).
		Str("path", req.Path).
		Int("retry", next.attempt).
		Dur("backoff", delay).
		Msg("API request failed, retrying")
	c.metrics.retried()

	if err := c.sleep(ctx, delay); err != nil {
		return nil, newTransportError(err)
	}
	return c.send(ctx, req, header, body, next)
}

// clearSession purges the token store and runs the unauthorized hook. Concurrent 401s each do this.
func (c *Client) clearSession(ctx context.Context, req Request) {
	c.metrics.sessionCleared()
	if err := c.tokens.RemoveToken(ctx); err != nil {
		log.Err(err).Str("path", req.Path).Msg("Failed to clear session after 401")
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized(ctx)
	}
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request, header http.Header, body []byte) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.newHTTPRequest]")
	}
	httpReq.Header = header.Clone()
	return httpReq, nil
}
