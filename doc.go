// Package authclient bridges an application frontend to a session/token
// based authentication backend (Laravel Sanctum style APIs and friends).
//
// Request pipeline:
//   - Client wraps the five JSON verbs (Get, Post, Put, Patch, Destroy) and
//     delegates credential attachment to RequestPreparer: CSRF header with a
//     priming fetch in cookie mode, Authorization bearer header in token
//     mode, and Referer/Origin/Cookie forwarding when a request executes on
//     behalf of a server-rendered page.
//   - Failed calls flow through ErrorBag, which normalizes 422/419/401 and
//     transport failures into a message plus field-level errors, and reports
//     whether the local session must be invalidated. The original error is
//     always re-thrown so callers can still branch on status or payload.
//
// Session lifecycle:
//   - Auth owns the authenticated user record inside an explicit
//     SessionState (no ambient globals) and implements Login, Logout, and
//     RefreshUser following the backend's redirect conventions, including
//     the intended-route query parameter.
//   - TokenStore persists the bearer token behind interchangeable backends:
//     a cookie-jar variant and a durable-storage variant that degrades to a
//     no-op during server-side execution.
//
// Route guarding:
//   - Guard computes pure allow/redirect decisions (CheckAuth, CheckGuest).
//     Ready-made go-router middleware lives in middleware/guard.
package authclient
