package guard

import (
	"net/http"
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newGuardContext(path, original string, queries map[string]string) *router.MockContext {
	ctx := router.NewMockContext()
	if queries == nil {
		queries = map[string]string{}
	}
	ctx.QueriesM = queries
	ctx.On("Path").Return(path).Maybe()
	ctx.On("OriginalURL").Return(original).Maybe()
	ctx.On("Queries").Return(queries).Maybe()
	return ctx
}

func testGuard(authenticated bool, redirects authclient.RedirectConfig) *authclient.Guard {
	session := authclient.NewSessionState("")
	if authenticated {
		session.SetUser(map[string]any{"id": 1})
	}

	return authclient.NewGuard(authclient.Config{Redirect: redirects}, session)
}

func TestRequireAuthPassesAuthenticatedSession(t *testing.T) {
	handler := RequireAuth(Config{
		Guard: testGuard(true, authclient.RedirectConfig{Login: "/login"}),
	})(func(ctx router.Context) error { return nil })

	ctx := newGuardContext("/account", "/account", nil)
	require.NoError(t, handler(ctx))
	require.True(t, ctx.NextCalled)
}

func TestRequireAuthRedirectsAnonymousToLogin(t *testing.T) {
	handler := RequireAuth(Config{
		Guard: testGuard(false, authclient.RedirectConfig{
			Login:           "/login",
			IntendedEnabled: true,
		}),
	})(func(ctx router.Context) error { return nil })

	ctx := newGuardContext("/account", "/account?tab=billing", nil)

	var target string
	ctx.On("Redirect", mock.Anything, []int{router.StatusSeeOther}).Run(func(args mock.Arguments) {
		target = args.String(0)
	}).Return(nil)

	require.NoError(t, handler(ctx))
	require.False(t, ctx.NextCalled)
	require.Equal(t, "/login?redirect=%2Faccount%3Ftab%3Dbilling", target)
}

func TestRequireAuthDeniesWhenNoLoginConfigured(t *testing.T) {
	var captured error

	handler := RequireAuth(Config{
		Guard: testGuard(false, authclient.RedirectConfig{}),
		ErrorHandler: func(ctx router.Context, err error) error {
			captured = err
			return err
		},
	})(func(ctx router.Context) error { return nil })

	ctx := newGuardContext("/account", "/account", nil)

	err := handler(ctx)
	require.Error(t, err)
	require.ErrorIs(t, captured, ErrAccessDenied)
}

func TestRequireAuthSkip(t *testing.T) {
	handler := RequireAuth(Config{
		Guard: testGuard(false, authclient.RedirectConfig{}),
		Skip:  func(ctx router.Context) bool { return true },
	})(func(ctx router.Context) error { return nil })

	ctx := newGuardContext("/health", "/health", nil)
	require.NoError(t, handler(ctx))
	require.True(t, ctx.NextCalled)
}

func TestGuestOnlyPassesAnonymousVisitor(t *testing.T) {
	handler := GuestOnly(Config{
		Guard: testGuard(false, authclient.RedirectConfig{PostLogin: "/dashboard"}),
	})(func(ctx router.Context) error { return nil })

	ctx := newGuardContext("/login", "/login", nil)
	require.NoError(t, handler(ctx))
	require.True(t, ctx.NextCalled)
}

func TestGuestOnlyBouncesAuthenticatedVisitor(t *testing.T) {
	handler := GuestOnly(Config{
		Guard: testGuard(true, authclient.RedirectConfig{PostLogin: "/dashboard"}),
	})(func(ctx router.Context) error { return nil })

	ctx := newGuardContext("/login", "/login", nil)

	var target string
	ctx.On("Redirect", mock.Anything, []int{router.StatusSeeOther}).Run(func(args mock.Arguments) {
		target = args.String(0)
	}).Return(nil)

	require.NoError(t, handler(ctx))
	require.False(t, ctx.NextCalled)
	require.Equal(t, "/dashboard", target)
}

func TestGuestOnlyHonorsIntendedDestination(t *testing.T) {
	handler := GuestOnly(Config{
		Guard: testGuard(true, authclient.RedirectConfig{
			PostLogin:       "/dashboard",
			IntendedEnabled: true,
		}),
	})(func(ctx router.Context) error { return nil })

	ctx := newGuardContext("/login", "/login?redirect=%2Freports", map[string]string{
		"redirect": "/reports",
	})

	var target string
	ctx.On("Redirect", mock.Anything, []int{router.StatusSeeOther}).Run(func(args mock.Arguments) {
		target = args.String(0)
	}).Return(nil)

	require.NoError(t, handler(ctx))
	require.Equal(t, "/reports", target)
}

func TestGuestOnlyDeniesWhenNoTargetConfigured(t *testing.T) {
	var captured error

	handler := GuestOnly(Config{
		Guard: testGuard(true, authclient.RedirectConfig{}),
		ErrorHandler: func(ctx router.Context, err error) error {
			captured = err
			return err
		},
	})(func(ctx router.Context) error { return nil })

	ctx := newGuardContext("/login", "/login", nil)

	err := handler(ctx)
	require.Error(t, err)
	require.ErrorIs(t, captured, ErrAccessDenied)
}

func TestConfigDefaultPanicsWithoutGuard(t *testing.T) {
	require.Panics(t, func() {
		RequireAuth()(func(ctx router.Context) error { return nil })(router.NewMockContext())
	})
}

func TestCustomRedirectStatus(t *testing.T) {
	handler := GuestOnly(Config{
		Guard:          testGuard(true, authclient.RedirectConfig{PostLogin: "/dashboard"}),
		RedirectStatus: http.StatusMovedPermanently,
	})(func(ctx router.Context) error { return nil })

	ctx := newGuardContext("/login", "/login", nil)
	ctx.On("Redirect", "/dashboard", []int{http.StatusMovedPermanently}).Return(nil)

	require.NoError(t, handler(ctx))
}
