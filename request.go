package authclient

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

var mutatingMethods = map[string]struct{}{
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

var spoofableMethods = map[string]struct{}{
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// RequestPreparer decides, per outgoing request, what security material to
// attach: the CSRF header (with a priming fetch when the cookie is absent)
// in cookie mode, the bearer token in token mode, and browser-equivalent
// forwarding headers when executing on behalf of a server-rendered page.
type RequestPreparer struct {
	cfg     Config
	tokens  TokenStore
	jar     http.CookieJar
	base    *url.URL
	inbound *http.Request
	priming *http.Client
	logger  Logger
}

type PreparerOption func(*RequestPreparer)

// WithPreparerLogger overrides the preparer logger.
func WithPreparerLogger(logger Logger) PreparerOption {
	return func(p *RequestPreparer) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPreparerCookieJar points the preparer at the jar the transport uses,
// so CSRF cookies primed by the backend become readable.
func WithPreparerCookieJar(jar http.CookieJar) PreparerOption {
	return func(p *RequestPreparer) {
		p.jar = jar
	}
}

// WithPreparerInboundRequest marks the preparer as executing server-side on
// behalf of r: forwarding headers are derived from it.
func WithPreparerInboundRequest(r *http.Request) PreparerOption {
	return func(p *RequestPreparer) {
		p.inbound = r
	}
}

// WithPrimingClient sets the HTTP client used for the CSRF priming fetch.
// It must share the preparer's cookie jar.
func WithPrimingClient(client *http.Client) PreparerOption {
	return func(p *RequestPreparer) {
		if client != nil {
			p.priming = client
		}
	}
}

func NewRequestPreparer(cfg Config, tokens TokenStore, opts ...PreparerOption) (*RequestPreparer, error) {
	cfg = configDefault(cfg)

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || !base.IsAbs() {
		return nil, ErrMissingBaseURL
	}

	p := &RequestPreparer{
		cfg:    cfg,
		tokens: tokens,
		base:   base,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	if p.priming == nil {
		p.priming = &http.Client{Jar: p.jar}
	}

	return p, nil
}

// ResolveMethod normalizes method spoofing for multipart bodies: PUT, PATCH
// and DELETE are rewritten to POST with a _method form field carrying the
// original verb, since multipart payloads are not universally supported on
// non-POST verbs by common backend frameworks. Returns the transport method
// to use.
func (p *RequestPreparer) ResolveMethod(method string, form *FormData) string {
	method = strings.ToUpper(method)

	if form == nil {
		return method
	}

	if _, ok := spoofableMethods[method]; !ok {
		return method
	}

	form.Set("_method", method)
	return http.MethodPost
}

// Prepare composes the credential and forwarding headers onto req. Caller
// supplied request hooks run before Prepare, so request-level headers win
// over configured defaults. CSRF priming failures are logged and never
// block the request; the backend will answer 419 if the header mattered.
func (p *RequestPreparer) Prepare(ctx context.Context, req *http.Request) error {
	p.normalizeHeaders(req)

	switch p.cfg.Mode {
	case ModeToken:
		p.attachBearer(req)
	default:
		p.attachCookieCredentials(ctx, req)
	}

	return nil
}

func (p *RequestPreparer) normalizeHeaders(req *http.Request) {
	if req.Header == nil {
		req.Header = http.Header{}
	}

	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	for key, value := range p.cfg.Headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}
}

func (p *RequestPreparer) attachCookieCredentials(ctx context.Context, req *http.Request) {
	if p.inbound != nil {
		p.forwardServerHeaders(req)
	}

	if _, ok := mutatingMethods[req.Method]; !ok {
		return
	}

	token := p.csrfToken()
	if token == "" {
		p.primeCSRF(ctx)
		token = p.csrfToken()
	}

	if token == "" {
		p.logger.Warn("CSRF cookie absent after priming, proceeding without %s header", p.cfg.CSRF.HeaderName)
		return
	}

	req.Header.Set(p.cfg.CSRF.HeaderName, token)
}

// forwardServerHeaders makes a server-issued request look like it came from
// the browser: Referer/Origin carry the configured origin (or the inbound
// request's own), and the inbound Cookie header travels verbatim.
func (p *RequestPreparer) forwardServerHeaders(req *http.Request) {
	origin := p.cfg.OriginURL
	if origin == "" {
		origin = inboundOrigin(p.inbound)
	}

	if origin != "" {
		req.Header.Set("Referer", origin)
		req.Header.Set("Origin", origin)
	}

	if cookies := p.inbound.Header.Get("Cookie"); cookies != "" {
		req.Header.Set("Cookie", cookies)
	}
}

func (p *RequestPreparer) attachBearer(req *http.Request) {
	token := p.tokens.Get()
	if token == "" {
		p.logger.Debug("no bearer token in store, request goes out unauthenticated")
		return
	}

	if info, err := InspectToken(token); err == nil {
		p.logger.Debug("attaching bearer token subject=%s expires_at=%v", info.Subject, info.ExpiresAt)
	}

	req.Header.Set("Authorization", "Bearer "+token)
}

// csrfToken reads the CSRF cookie: from the inbound request during
// server-side execution, from the shared jar otherwise. The value is
// URL-decoded, matching how backends serialize it.
func (p *RequestPreparer) csrfToken() string {
	raw := ""

	if p.inbound != nil {
		if cookie, err := p.inbound.Cookie(p.cfg.CSRF.CookieName); err == nil {
			raw = cookie.Value
		}
	} else if p.jar != nil {
		for _, cookie := range p.jar.Cookies(p.base) {
			if cookie.Name == p.cfg.CSRF.CookieName {
				raw = cookie.Value
				break
			}
		}
	}

	if raw == "" {
		return ""
	}

	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}

	return decoded
}

// primeCSRF asks the backend to set the CSRF cookie. Concurrent callers may
// both prime; the operation is idempotent on the backend and needs no
// coordination.
func (p *RequestPreparer) primeCSRF(ctx context.Context) {
	target := p.base.ResolveReference(&url.URL{Path: p.cfg.Endpoints.CSRF})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		p.logger.Warn("CSRF priming request could not be built: %v", err)
		return
	}

	req.Header.Set("Accept", "application/json")

	res, err := p.priming.Do(req)
	if err != nil {
		p.logger.Warn("CSRF priming request failed: %v", err)
		return
	}
	defer res.Body.Close()

	io.Copy(io.Discard, res.Body)
}

func inboundOrigin(r *http.Request) string {
	if r.URL != nil && r.URL.IsAbs() {
		return r.URL.Scheme + "://" + r.URL.Host
	}

	if r.Host == "" {
		return ""
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host
}
