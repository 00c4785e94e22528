package authclient

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// AuthMode selects how credentials are attached to outgoing requests.
type AuthMode string

const (
	// ModeCookie uses the backend session cookie plus a CSRF header on
	// mutating requests.
	ModeCookie AuthMode = "cookie"
	// ModeToken uses an Authorization bearer header.
	ModeToken AuthMode = "token"
)

// StorageType selects the TokenStore backend.
type StorageType string

const (
	// StorageCookie keeps the token as a cookie scoped to the API origin.
	StorageCookie StorageType = "cookie"
	// StorageDurable keeps the token in a TokenStorage backend. Unavailable
	// during server-side execution, where it degrades to a no-op.
	StorageDurable StorageType = "durable"
)

// Defaults follow the Sanctum conventions the backend ships with.
const (
	DefaultUserStateKey     = "auth.user"
	DefaultTokenKey         = "auth.token"
	DefaultCSRFCookie       = "XSRF-TOKEN"
	DefaultCSRFHeader       = "X-XSRF-TOKEN"
	DefaultCSRFEndpoint     = "/sanctum/csrf-cookie"
	DefaultLoginEndpoint    = "/login"
	DefaultLogoutEndpoint   = "/logout"
	DefaultUserEndpoint     = "/api/user"
	DefaultTokenResponseKey = "token"
)

// IntendedQueryParam carries the originally requested path through the
// login redirect.
const IntendedQueryParam = "redirect"

type TokenConfig struct {
	// StorageKey names the cookie or storage slot holding the token.
	StorageKey string
	// StorageType selects the backend, cookie or durable.
	StorageType StorageType
	// ResponseKey is the dot path locating the token inside the login
	// response body, e.g. "data.token".
	ResponseKey string
}

type FetchConfig struct {
	// RetryAttempts re-issues a request after transport-level failures.
	// HTTP-status failures are never retried. Zero disables retries.
	RetryAttempts int
}

type CSRFConfig struct {
	CookieName string
	HeaderName string
}

type EndpointConfig struct {
	CSRF   string
	Login  string
	Logout string
	User   string
}

// RedirectConfig controls post-auth navigation. An empty path disables the
// corresponding redirect.
type RedirectConfig struct {
	// IntendedEnabled preserves the originally requested route in a query
	// parameter so login can return the visitor there.
	IntendedEnabled bool
	Login           string
	PostLogin       string
	PostLogout      string
}

type MessageConfig struct {
	Default         string
	CSRF            string
	Unauthenticated string
}

// Config is the immutable per-boot configuration shared by every component.
type Config struct {
	// BaseURL is the absolute URL of the authentication backend.
	BaseURL string
	// OriginURL overrides the Referer/Origin pair attached to requests
	// executed server-side. When empty, the inbound request's own origin is
	// used.
	OriginURL string
	// Mode selects cookie or token authentication.
	Mode AuthMode
	// UserStateKey identifies the shared session slot; useful when several
	// logical sessions coexist in one process.
	UserStateKey string
	// UserResponseKey is the dot path unwrapping the user record from the
	// user endpoint response, e.g. "data". Empty uses the body as-is.
	UserResponseKey string
	// Headers are merged into every outgoing request. Request-level headers
	// win on conflict.
	Headers map[string]string

	Token     TokenConfig
	Fetch     FetchConfig
	CSRF      CSRFConfig
	Endpoints EndpointConfig
	Redirect  RedirectConfig
	Messages  MessageConfig
}

// Validate runs the construction-time validation rules.
func (c Config) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.OriginURL, is.URL),
		validation.Field(&c.Mode, validation.In(ModeCookie, ModeToken)),
	); err != nil {
		return err
	}

	if err := validation.ValidateStruct(&c.Token,
		validation.Field(&c.Token.StorageType, validation.In(StorageCookie, StorageDurable)),
	); err != nil {
		return err
	}

	return validation.ValidateStruct(&c.Fetch,
		validation.Field(&c.Fetch.RetryAttempts, validation.Min(0)),
	)
}

// configDefault fills the zero-value slots. Redirect paths deliberately stay
// empty: a redirect is opt-in and an empty path disables it.
func configDefault(cfg Config) Config {
	if cfg.Mode == "" {
		cfg.Mode = ModeCookie
	}

	if cfg.UserStateKey == "" {
		cfg.UserStateKey = DefaultUserStateKey
	}

	if cfg.Token.StorageKey == "" {
		cfg.Token.StorageKey = DefaultTokenKey
	}

	if cfg.Token.StorageType == "" {
		cfg.Token.StorageType = StorageCookie
	}

	if cfg.Token.ResponseKey == "" {
		cfg.Token.ResponseKey = DefaultTokenResponseKey
	}

	if cfg.CSRF.CookieName == "" {
		cfg.CSRF.CookieName = DefaultCSRFCookie
	}

	if cfg.CSRF.HeaderName == "" {
		cfg.CSRF.HeaderName = DefaultCSRFHeader
	}

	if cfg.Endpoints.CSRF == "" {
		cfg.Endpoints.CSRF = DefaultCSRFEndpoint
	}

	if cfg.Endpoints.Login == "" {
		cfg.Endpoints.Login = DefaultLoginEndpoint
	}

	if cfg.Endpoints.Logout == "" {
		cfg.Endpoints.Logout = DefaultLogoutEndpoint
	}

	if cfg.Endpoints.User == "" {
		cfg.Endpoints.User = DefaultUserEndpoint
	}

	if cfg.Messages.Default == "" {
		cfg.Messages.Default = "Something went wrong. Please try again."
	}

	if cfg.Messages.CSRF == "" {
		cfg.Messages.CSRF = "CSRF token mismatch."
	}

	if cfg.Messages.Unauthenticated == "" {
		cfg.Messages.Unauthenticated = "Unauthenticated."
	}

	return cfg
}
