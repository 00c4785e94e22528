package authclient

import "net/url"

// Guard is the pure route-guard policy: given the current session and a
// route, it decides whether navigation may proceed and where to redirect
// otherwise. It performs no I/O and no navigation itself, which keeps it
// usable from any host router and trivially testable.
type Guard struct {
	cfg     Config
	session *SessionState
}

func NewGuard(cfg Config, session *SessionState) *Guard {
	return &Guard{
		cfg:     configDefault(cfg),
		session: session,
	}
}

// CheckAuth evaluates a protected route. Anonymous visitors are sent to the
// login route, with the attempted URL preserved in the redirect query
// parameter when intended redirects are enabled. When no login route is
// configured the decision carries no redirect and the caller should deny
// access outright.
func (g *Guard) CheckAuth(route Route) RedirectDecision {
	if g.session.Authenticated() {
		return RedirectDecision{IsAuthenticated: true}
	}

	login := g.cfg.Redirect.Login
	if login == "" {
		return RedirectDecision{}
	}

	redirect := &Redirect{Path: login}
	if g.cfg.Redirect.IntendedEnabled && route.FullPath != "" {
		redirect.Query = url.Values{IntendedQueryParam: {route.FullPath}}
	}

	return RedirectDecision{RedirectTo: redirect}
}

// CheckGuest evaluates a guest-only route (login, registration). Anonymous
// visitors pass. Authenticated visitors are bounced to their intended
// destination when one is carried in the query, else to the post-login
// route; with neither available the decision carries no redirect.
func (g *Guard) CheckGuest(route Route) RedirectDecision {
	if !g.session.Authenticated() {
		return RedirectDecision{}
	}

	if g.cfg.Redirect.IntendedEnabled {
		if intended := route.Query.Get(IntendedQueryParam); intended != "" && intended != route.Path {
			return RedirectDecision{
				IsAuthenticated: true,
				RedirectTo:      &Redirect{Path: intended},
			}
		}
	}

	if post := g.cfg.Redirect.PostLogin; post != "" {
		return RedirectDecision{
			IsAuthenticated: true,
			RedirectTo:      &Redirect{Path: post},
		}
	}

	return RedirectDecision{IsAuthenticated: true}
}
