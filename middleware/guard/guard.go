package guard

import (
	"errors"
	"net/url"

	authclient "github.com/goliatone/go-auth-client"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// ErrAccessDenied is raised when a guard blocks navigation and no redirect
// target is configured.
var ErrAccessDenied = errors.New("access denied")

// DefaultRedirectStatus is the status used for guard redirects.
const DefaultRedirectStatus = router.StatusSeeOther

// Config defines the configuration for the route guard middleware
type Config struct {
	// Guard evaluates the session against the route. Required.
	Guard *authclient.Guard

	// Skip defines a function to skip middleware
	Skip func(router.Context) bool

	// ErrorHandler handles denied access (no redirect target available)
	ErrorHandler router.ErrorHandler

	// RedirectStatus is the HTTP status for guard redirects
	RedirectStatus int
}

// RequireAuth returns middleware that only lets authenticated sessions
// through. Anonymous visitors are redirected to the login route; when none
// is configured the request is denied.
func RequireAuth(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := configDefault(config...)

		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return ctx.Next()
			}

			decision := cfg.Guard.CheckAuth(routeFromContext(ctx))
			if decision.IsAuthenticated {
				return ctx.Next()
			}

			return apply(ctx, cfg, decision)
		}
	}
}

// GuestOnly returns middleware for guest routes (login, registration).
// Authenticated sessions are redirected away; anonymous visitors proceed.
func GuestOnly(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := configDefault(config...)

		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return ctx.Next()
			}

			decision := cfg.Guard.CheckGuest(routeFromContext(ctx))
			if !decision.IsAuthenticated {
				return ctx.Next()
			}

			return apply(ctx, cfg, decision)
		}
	}
}

func apply(ctx router.Context, cfg Config, decision authclient.RedirectDecision) error {
	if decision.RedirectTo != nil {
		return ctx.Redirect(decision.RedirectTo.Target(), cfg.RedirectStatus)
	}

	return cfg.ErrorHandler(ctx, goerrors.
		Wrap(ErrAccessDenied, goerrors.CategoryAuthz, "route guard blocked request").
		WithCode(goerrors.CodeForbidden).
		WithMetadata(map[string]any{
			"path": ctx.Path(),
		}))
}

func routeFromContext(ctx router.Context) authclient.Route {
	query := url.Values{}
	for key, value := range ctx.Queries() {
		query.Set(key, value)
	}

	return authclient.Route{
		Path:     ctx.Path(),
		FullPath: ctx.OriginalURL(),
		Query:    query,
	}
}

// configDefault returns a default config
func configDefault(config ...Config) Config {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Guard == nil {
		panic("guard: Config.Guard is required")
	}

	if cfg.RedirectStatus == 0 {
		cfg.RedirectStatus = DefaultRedirectStatus
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(ctx router.Context, err error) error {
			return ctx.Status(router.StatusForbidden).SendString("Forbidden")
		}
	}

	return cfg
}
