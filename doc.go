// Package main provides the entry point of accessctl, the role-based authorization
// service of the community area. It serves an HTTP API built on Fiber that manages
// roles, permissions, user role assignments and resource requirements, and answers
// access decisions for identified users. Roles and assignments are persisted with
// gorm, resolved permission sets are cached in memory or Redis and every denial is
// reported to the configured audit sinks.
package main
