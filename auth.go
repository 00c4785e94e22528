package authclient

import (
	"context"
	"encoding/json"
)

// LoginCallback receives the raw login response body and the refreshed user
// record (nil when the refresh failed). Supplying one takes over post-login
// navigation entirely.
type LoginCallback func(response map[string]any, user any)

// LogoutCallback runs after a successful logout and takes over post-logout
// navigation.
type LogoutCallback func()

type loginOptions struct {
	callback LoginCallback
	request  []RequestOption
}

type LoginOption func(*loginOptions)

// WithLoginCallback takes over post-login navigation.
func WithLoginCallback(cb LoginCallback) LoginOption {
	return func(o *loginOptions) {
		o.callback = cb
	}
}

// WithLoginRequestOptions forwards per-call options to the login request.
func WithLoginRequestOptions(opts ...RequestOption) LoginOption {
	return func(o *loginOptions) {
		o.request = append(o.request, opts...)
	}
}

type logoutOptions struct {
	callback LogoutCallback
}

type LogoutOption func(*logoutOptions)

// WithLogoutCallback takes over post-logout navigation.
func WithLogoutCallback(cb LogoutCallback) LogoutOption {
	return func(o *logoutOptions) {
		o.callback = cb
	}
}

// Auth is the authentication state machine: anonymous (no user record) or
// authenticated (user record present), with Login, Logout and RefreshUser
// as the transitions. T is the application's user record type.
type Auth[T any] struct {
	cfg     Config
	client  *Client
	session *SessionState
	nav     Navigator
	logger  Logger
}

type authOptions struct {
	nav    Navigator
	logger Logger
}

type AuthOption func(*authOptions)

// WithNavigator wires the host application's router so Auth can issue
// redirects. Without one, redirect decisions are computed and dropped.
func WithNavigator(nav Navigator) AuthOption {
	return func(o *authOptions) {
		if nav != nil {
			o.nav = nav
		}
	}
}

// WithAuthLogger overrides the auth logger.
func WithAuthLogger(logger Logger) AuthOption {
	return func(o *authOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewAuth builds the state machine on top of client. The session slot, the
// token store, the processing flag, and the error bag are all the client's;
// Auth adds the lifecycle and redirect policy.
func NewAuth[T any](client *Client, opts ...AuthOption) *Auth[T] {
	options := &authOptions{
		nav:    noopNavigator{},
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	return &Auth[T]{
		cfg:     client.Config(),
		client:  client,
		session: client.Session(),
		nav:     options.nav,
		logger:  options.logger,
	}
}

// Client returns the underlying HTTP client.
func (a *Auth[T]) Client() *Client {
	return a.client
}

// User returns the typed authenticated user record.
func (a *Auth[T]) User() (T, bool) {
	var zero T

	raw := a.session.User()
	if raw == nil {
		return zero, false
	}

	user, ok := raw.(T)
	if !ok {
		return zero, false
	}

	return user, true
}

// IsAuthenticated reports whether a user record is present.
func (a *Auth[T]) IsAuthenticated() bool {
	return a.session.Authenticated()
}

// Processing mirrors the client's in-flight flag.
func (a *Auth[T]) Processing() bool {
	return a.client.Processing()
}

// Errors exposes the client's error bag for form consumers.
func (a *Auth[T]) Errors() *ErrorBag {
	return a.client.Errors()
}

// Guard returns the route-guard policy bound to this session.
func (a *Auth[T]) Guard() *Guard {
	return NewGuard(a.cfg, a.session)
}

// Login posts credentials to the login endpoint, persists the bearer token
// in token mode, refreshes the user record, and applies the redirect
// policy. When already authenticated no network call is made; the post-login
// redirect still applies if the current route differs.
//
// Network failures propagate; on a 422 the error bag carries the field
// errors for the calling form.
func (a *Auth[T]) Login(ctx context.Context, credentials any, opts ...LoginOption) error {
	options := &loginOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if a.session.Authenticated() {
		a.logger.Debug("login skipped, session already authenticated")
		a.redirectUnlessCurrent(a.cfg.Redirect.PostLogin)
		return nil
	}

	response := map[string]any{}
	if err := a.client.Post(ctx, a.cfg.Endpoints.Login, credentials, &response, options.request...); err != nil {
		return err
	}

	if a.cfg.Mode == ModeToken {
		token, ok := ExtractString(response, a.cfg.Token.ResponseKey)
		if ok && token != "" {
			a.client.TokenStore().Set(token)
		} else {
			a.logger.Warn("login response carried no token at key %q", a.cfg.Token.ResponseKey)
		}
	}

	a.RefreshUser(ctx)

	if options.callback != nil {
		options.callback(response, a.session.User())
		return nil
	}

	current := a.nav.Route()

	if a.cfg.Redirect.IntendedEnabled {
		if intended := current.Query.Get(IntendedQueryParam); intended != "" && intended != current.Path {
			return a.nav.Navigate(intended)
		}
	}

	if path := a.cfg.Redirect.PostLogin; path != "" && path != current.Path {
		return a.nav.Navigate(path)
	}

	return nil
}

// Logout posts to the logout endpoint, clears the user record (and the
// stored token in token mode), and applies the redirect policy. A logout
// while anonymous is a silent no-op.
func (a *Auth[T]) Logout(ctx context.Context, opts ...LogoutOption) error {
	options := &logoutOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if !a.session.Authenticated() {
		a.logger.Debug("logout skipped, no authenticated session")
		return nil
	}

	if err := a.client.Post(ctx, a.cfg.Endpoints.Logout, nil, nil); err != nil {
		return err
	}

	a.session.ClearUser()

	if a.cfg.Mode == ModeToken {
		a.client.TokenStore().Set("")
	}

	if options.callback != nil {
		options.callback()
		return nil
	}

	a.redirectUnlessCurrent(a.cfg.Redirect.PostLogout)
	return nil
}

// RefreshUser fetches the canonical user record from the user endpoint.
// Every failure is absorbed: an anonymous visitor on a public page is an
// expected condition, so the record is cleared and the cause only
// debug-logged.
func (a *Auth[T]) RefreshUser(ctx context.Context) {
	payload := map[string]any{}
	if err := a.client.Get(ctx, a.cfg.Endpoints.User, nil, &payload); err != nil {
		a.logger.Debug("user refresh failed: %v", err)
		a.session.ClearUser()
		return
	}

	raw := any(payload)
	if a.cfg.UserResponseKey != "" {
		extracted, ok := Extract(payload, a.cfg.UserResponseKey)
		if !ok {
			a.logger.Debug("user response carried nothing at key %q", a.cfg.UserResponseKey)
			a.session.ClearUser()
			return
		}
		raw = extracted
	}

	user, err := decodeUser[T](raw)
	if err != nil {
		a.logger.Debug("user record did not decode: %v", err)
		a.session.ClearUser()
		return
	}

	a.session.SetUser(user)
}

func (a *Auth[T]) redirectUnlessCurrent(path string) {
	if path == "" || path == a.nav.Route().Path {
		return
	}

	if err := a.nav.Navigate(path); err != nil {
		a.logger.Warn("navigation to %s failed: %v", path, err)
	}
}

// decodeUser maps the loosely typed response value onto the application's
// user record via a JSON round trip.
func decodeUser[T any](raw any) (T, error) {
	var user T

	data, err := json.Marshal(raw)
	if err != nil {
		return user, err
	}

	if err := json.Unmarshal(data, &user); err != nil {
		return user, err
	}

	return user, nil
}
