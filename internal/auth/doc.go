// Package auth provides the role-based authorization of the application.
//
// Users live in an external identity provider and are referenced by id only.
// This package never authenticates anyone, it answers whether an already
// identified user may access a resource.
//
// # Stores
//
// RoleStore holds roles, the permission catalogue and the grants between them.
// AssignmentStore holds which users hold which roles. Every mutation runs in
// one transaction and invalidates the cached grants of the affected users
// after commit.
//
// # Resolution
//
// A Resolver computes the Grants of a user: the roles with an active
// assignment and the union of the permissions granted to them. StoreResolver
// reads the database, CachedResolver keeps recent results in a cache.Cache.
//
// # Decisions
//
// Engine.Decide evaluates a Requirement for a user:
//   - a public requirement always allows, even for anonymous callers
//   - an anonymous caller is denied with ReasonUnauthenticated
//   - a requirement naming unknown roles or permissions is denied with ReasonRoleNotFound
//   - holders of the bypass role are allowed
//   - otherwise the permission must be held, or at least one of the roles
//
// Store failures are returned as errors wrapping ErrStoreUnavailable and are
// never turned into a denial.
//
// Example usage:
//
//	svc := auth.NewService(db, auth.WithBypass(auth.RoleAdmin), auth.WithCriticalRoles(auth.RoleAdmin))
//
//	d, err := svc.Decide(ctx, userID, auth.RequirePermission(auth.PermManageCourses))
//
//	app.Post("/api/courses",
//	    auth.Require(svc.Engine, auth.RequirePermission(auth.PermManageCourses)),
//	    handler,
//	)
package auth
