package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync/atomic"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// Client orchestrates RequestPreparer, the transport, and ErrorBag for the
// five JSON verbs. Each client instance carries its own ErrorBag and
// processing flag; components sharing a client intentionally share both.
type Client struct {
	cfg     Config
	base    *url.URL
	http    *http.Client
	session *SessionState
	tokens  TokenStore
	prep    *RequestPreparer
	errs    *ErrorBag
	logger  Logger

	processing atomic.Bool

	onRequest       []RequestHook
	onResponseError []ResponseErrorHook
}

type clientOptions struct {
	logger          Logger
	httpClient      *http.Client
	tokens          TokenStore
	storage         TokenStorage
	inbound         *http.Request
	onRequest       []RequestHook
	onResponseError []ResponseErrorHook
}

type ClientOption func(*clientOptions)

// WithLogger overrides the client logger. The token store, preparer, and
// error bag the client constructs inherit it.
func WithLogger(logger Logger) ClientOption {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHTTPClient supplies the transport. A cookie jar is attached when the
// given client has none, since cookie-mode credentials live in the jar.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithTokenStore overrides the token store the client would otherwise build
// from configuration.
func WithTokenStore(store TokenStore) ClientOption {
	return func(o *clientOptions) {
		if store != nil {
			o.tokens = store
		}
	}
}

// WithClientTokenStorage supplies the durable backend used when the
// configured storage type is StorageDurable.
func WithClientTokenStorage(storage TokenStorage) ClientOption {
	return func(o *clientOptions) {
		if storage != nil {
			o.storage = storage
		}
	}
}

// WithInboundRequest marks the client as executing server-side on behalf of
// r. Forwarding headers derive from r, and durable token storage becomes a
// no-op for the lifetime of this client.
func WithInboundRequest(r *http.Request) ClientOption {
	return func(o *clientOptions) {
		o.inbound = r
	}
}

// WithRequestHook appends a hook run before every request is prepared.
func WithRequestHook(hook RequestHook) ClientOption {
	return func(o *clientOptions) {
		if hook != nil {
			o.onRequest = append(o.onRequest, hook)
		}
	}
}

// WithResponseErrorHook appends a hook run after every failed request, once
// the ErrorBag has classified it.
func WithResponseErrorHook(hook ResponseErrorHook) ClientOption {
	return func(o *clientOptions) {
		if hook != nil {
			o.onResponseError = append(o.onResponseError, hook)
		}
	}
}

func NewClient(cfg Config, session *SessionState, opts ...ClientOption) (*Client, error) {
	if session == nil {
		return nil, ErrMissingSession
	}

	cfg = configDefault(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid client configuration")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || !base.IsAbs() {
		return nil, ErrMissingBaseURL
	}

	options := &clientOptions{
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	httpClient := options.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "building cookie jar")
		}
		httpClient.Jar = jar
	}

	tokens := options.tokens
	if tokens == nil {
		storeOpts := []TokenStoreOption{
			WithTokenStoreLogger(options.logger),
			WithTokenCookieJar(httpClient.Jar, base),
		}
		if options.storage != nil {
			storeOpts = append(storeOpts, WithTokenStorage(options.storage))
		}
		if options.inbound != nil {
			storeOpts = append(storeOpts, WithServerExecution())
		}
		tokens = NewTokenStore(cfg, session, storeOpts...)
	}

	prepOpts := []PreparerOption{
		WithPreparerLogger(options.logger),
		WithPreparerCookieJar(httpClient.Jar),
		WithPrimingClient(httpClient),
	}
	if options.inbound != nil {
		prepOpts = append(prepOpts, WithPreparerInboundRequest(options.inbound))
	}

	prep, err := NewRequestPreparer(cfg, tokens, prepOpts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:             cfg,
		base:            base,
		http:            httpClient,
		session:         session,
		tokens:          tokens,
		prep:            prep,
		errs:            NewErrorBag(cfg, WithErrorBagLogger(options.logger)),
		logger:          options.logger,
		onRequest:       options.onRequest,
		onResponseError: options.onResponseError,
	}, nil
}

// Config returns the normalized configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Session returns the shared session state.
func (c *Client) Session() *SessionState {
	return c.session
}

// TokenStore returns the bearer token store.
func (c *Client) TokenStore() TokenStore {
	return c.tokens
}

// Errors returns the shared error bag.
func (c *Client) Errors() *ErrorBag {
	return c.errs
}

// Processing reports whether the client considers itself busy. Note: the
// flag flips back to false only when a request fails; a successful call
// leaves it true until the next call begins. Preserved as-is because form
// consumers depend on the literal behavior; see DESIGN.md.
func (c *Client) Processing() bool {
	return c.processing.Load()
}

type requestOptions struct {
	headers         http.Header
	query           url.Values
	onRequest       []RequestHook
	onResponseError []ResponseErrorHook
}

type RequestOption func(*requestOptions)

// WithHeader sets a request-level header. Request-level headers win over
// configured global headers.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = http.Header{}
		}
		o.headers.Set(key, value)
	}
}

// WithQuery merges extra query parameters into the request URL.
func WithQuery(values url.Values) RequestOption {
	return func(o *requestOptions) {
		if o.query == nil {
			o.query = url.Values{}
		}
		for key, vals := range values {
			for _, val := range vals {
				o.query.Add(key, val)
			}
		}
	}
}

// WithOnRequest appends a per-call pre-hook. Per-call hooks chain after the
// client-level hooks; they never replace them.
func WithOnRequest(hook RequestHook) RequestOption {
	return func(o *requestOptions) {
		if hook != nil {
			o.onRequest = append(o.onRequest, hook)
		}
	}
}

// WithOnResponseError appends a per-call post-hook, run after the ErrorBag
// classified the failure.
func WithOnResponseError(hook ResponseErrorHook) RequestOption {
	return func(o *requestOptions) {
		if hook != nil {
			o.onResponseError = append(o.onResponseError, hook)
		}
	}
}

// Get issues a GET request. The query payload, if any, travels as query
// parameters. The JSON response decodes into out when non-nil.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out, opts)
}

// Post issues a POST request with a JSON body, or multipart when body is a
// *FormData.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out, opts)
}

// Put issues a PUT request. Multipart bodies are method-spoofed to POST.
func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out, opts)
}

// Patch issues a PATCH request. Multipart bodies are method-spoofed to POST.
func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out, opts)
}

// Destroy issues a DELETE request. The query payload, if any, travels as
// query parameters.
func (c *Client) Destroy(ctx context.Context, path string, query url.Values, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodDelete, path, query, nil, out, opts)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, opts []RequestOption) error {
	c.processing.Store(true)
	c.errs.Reset()

	options := &requestOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	errorHooks := append(append([]ResponseErrorHook{}, c.onResponseError...), options.onResponseError...)

	requestID := uuid.New().String()

	contentType, payload, finalMethod, err := c.resolvePayload(method, body)
	if err != nil {
		return c.fail(ctx, nil, errorHooks,
			goerrors.Wrap(err, goerrors.CategoryBadInput, "encoding request body"))
	}

	target, err := c.resolveURL(path, query, options.query)
	if err != nil {
		return c.fail(ctx, nil, errorHooks,
			goerrors.Wrap(err, goerrors.CategoryBadInput, "resolving request URL"))
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, finalMethod, target.String(), reader)
	if err != nil {
		return c.fail(ctx, nil, errorHooks,
			goerrors.Wrap(err, goerrors.CategoryBadInput, "building request"))
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	for key, vals := range options.headers {
		req.Header[key] = vals
	}

	// Caller hooks run before preparation: request-level headers win over
	// configured defaults, and credential attachment always happens last.
	for _, hook := range append(append([]RequestHook{}, c.onRequest...), options.onRequest...) {
		if err := hook(ctx, req); err != nil {
			return c.fail(ctx, nil, errorHooks,
				goerrors.Wrap(err, goerrors.CategoryOperation, "request hook failed"))
		}
	}

	if err := c.prep.Prepare(ctx, req); err != nil {
		return c.fail(ctx, nil, errorHooks, err)
	}

	c.logger.Debug("dispatching %s %s id=%s", req.Method, target.String(), requestID)

	res, err := c.execute(req)
	if err != nil {
		return c.fail(ctx, nil, errorHooks,
			goerrors.Wrap(err, goerrors.CategoryOperation, "request transport failure"))
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return c.fail(ctx, res, errorHooks,
			goerrors.Wrap(err, goerrors.CategoryOperation, "reading response body"))
	}

	if res.StatusCode >= http.StatusBadRequest {
		return c.fail(ctx, res, errorHooks, &ResponseError{
			StatusCode: res.StatusCode,
			Status:     res.Status,
			Body:       data,
			RequestID:  requestID,
		})
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return c.fail(ctx, res, errorHooks,
				goerrors.Wrap(err, goerrors.CategoryOperation, "decoding response body"))
		}
	}

	// processing deliberately stays true on success; only failures flip it.
	c.errs.Reset()
	return nil
}

func (c *Client) resolvePayload(method string, body any) (contentType string, payload []byte, finalMethod string, err error) {
	finalMethod = method

	switch b := body.(type) {
	case nil:
	case *FormData:
		finalMethod = c.prep.ResolveMethod(method, b)
		contentType, payload, err = b.Encode()
	default:
		payload, err = json.Marshal(body)
		contentType = "application/json"
	}

	return contentType, payload, finalMethod, err
}

func (c *Client) resolveURL(path string, queries ...url.Values) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}

	target := c.base.ResolveReference(ref)

	merged := target.Query()
	for _, query := range queries {
		for key, vals := range query {
			for _, val := range vals {
				merged.Add(key, val)
			}
		}
	}
	target.RawQuery = merged.Encode()

	return target, nil
}

// execute runs the transport call, re-issuing after transport-level
// failures up to the configured retry budget. Responses with an HTTP status
// are never retried.
func (c *Client) execute(req *http.Request) (*http.Response, error) {
	attempts := c.cfg.Fetch.RetryAttempts

	for {
		res, err := c.http.Do(req)
		if err == nil {
			return res, nil
		}

		if attempts <= 0 || req.Context().Err() != nil {
			return nil, err
		}
		attempts--

		c.logger.Debug("transport failure, %d retries left: %v", attempts, err)

		clone := req.Clone(req.Context())
		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, err
			}
			clone.Body = body
		}
		req = clone
	}
}

// fail is the single failure path: flip processing off, classify, act on
// the invalidation flag, run error hooks, and re-throw the original error
// so callers can still branch on status or payload.
func (c *Client) fail(ctx context.Context, res *http.Response, hooks []ResponseErrorHook, err error) error {
	c.processing.Store(false)

	outcome := c.errs.Handle(err)
	c.logger.Debug("request failed: %s", print.MaybePrettyJSON(outcome))

	if outcome.InvalidateSession {
		c.logger.Info("session invalidated by unauthenticated response")
		c.session.ClearUser()
	}

	for _, hook := range hooks {
		hook(ctx, res, err)
	}

	return err
}
