// Package auth provides local authentication for OpenShelf.
//
// Users are stored in the main database with bcrypt password hashes.
// Browser clients authenticate through server-side sessions (scs backed by
// SQLite); there is no token auth. Login attempts are rate limited per
// IP+username with a temporary lockout.
//
// The package also carries the request-hardening middleware: CSRF
// protection, security headers, and the session load/save adapter for Gin.
package auth
