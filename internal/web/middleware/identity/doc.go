// Package identity resolves the user id of a request from the configured identity providers.
//
// The service never authenticates users itself. A Provider extracts an already
// issued credential (a session cookie, an HS256 bearer token or an OIDC ID token)
// and returns the user id it carries. Middleware tries the providers in order,
// stores the first user id found in fiber.Locals and lets the request continue.
// Requests without a valid credential continue anonymously, the authorization
// layer decides whether that is enough.
//
// Usage:
//
//	app.Use(identity.Middleware(
//	    identity.NewSession("session"),
//	    identity.NewJWT(cfg.Auth.JWT),
//	))
package identity
