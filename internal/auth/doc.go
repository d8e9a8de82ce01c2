// Package auth resolves the owner of each request.
//
// AUTH_MODE=none (default) serves a single library owned by user 0.
// AUTH_MODE=local keeps users in the relational database:
//
//	POST /api/auth/setup   create the first (admin) user
//	POST /api/auth/login   start an scs session cookie
//	POST /api/auth/token   issue a bearer token; only its sha256 is stored
//
// Cookie-authenticated writes must carry the token from GET /api/auth/csrf
// in the X-CSRF-Token header. Bearer requests skip CSRF.
//
// Middleware order: LoadAndSave, Handler, CSRFMiddleware. Handlers read
// the owner with GetUserID.
package auth
