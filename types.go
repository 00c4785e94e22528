package authclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Route is a snapshot of a navigation target, consumed by guard decisions
// and redirect handling.
type Route struct {
	// Path is the route path without query string, e.g. "/login".
	Path string
	// FullPath is the original URL including the query string.
	FullPath string
	// Query holds the parsed query parameters.
	Query url.Values
}

// Redirect describes where a guard or auth flow wants the host to navigate.
type Redirect struct {
	Path  string
	Query url.Values
}

// Target renders the redirect as a navigable URL string.
func (r Redirect) Target() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Query.Encode()
}

// RedirectDecision is the outcome of a single guard evaluation. A nil
// RedirectTo combined with IsAuthenticated=false means the caller should
// treat the access as denied (e.g. surface a 403).
type RedirectDecision struct {
	IsAuthenticated bool
	RedirectTo      *Redirect
}

// Navigator abstracts the host application's routing so Auth can issue
// post-login/post-logout redirects without binding to a UI framework.
type Navigator interface {
	// Route returns the current route snapshot.
	Route() Route
	// Navigate performs a client-side navigation to path.
	Navigate(path string) error
}

// TokenStore persists the bearer token for token-mode authentication.
// Set("") removes the stored value.
type TokenStore interface {
	Get() string
	Set(token string)
}

// TokenStorage is the pluggable backend behind the durable TokenStore
// variant. The in-memory implementation is the default; applications may
// supply keyring or file backed implementations.
type TokenStorage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// RequestHook runs before a prepared request is executed. Caller supplied
// hooks chain in the order supplied and never replace the built-in
// credential attachment.
type RequestHook func(ctx context.Context, req *http.Request) error

// ResponseErrorHook runs after a request fails, once the ErrorBag has
// classified the failure. res is nil for transport-level failures.
type ResponseErrorHook func(ctx context.Context, res *http.Response, err error)

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHCLIENT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// noopNavigator keeps headless consumers (tests, CLIs, workers) working
// without wiring a host router.
type noopNavigator struct{}

func (noopNavigator) Route() Route               { return Route{} }
func (noopNavigator) Navigate(path string) error { return nil }
