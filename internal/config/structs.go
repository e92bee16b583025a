package config

import (
	"time"

	"github.com/comunidade-central/accessctl/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Auth      Auth
	Cache     Cache
	Audit     Audit
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath      bool   // use clean path middleware to allow multi slash requests
	DisableRecover bool   // disable recover middleware
	Domain         string // domain name for the webserver
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown
	URL            string // base url for the webserver
	CheckAliveURI  string // path answered by the load balancer probe
}

// Auth holds the authorization policy and the identity providers feeding it.
type Auth struct {
	// AdminPermission protects the administrative API.
	AdminPermission string
	// BypassRole holders pass every requirement that references existing roles/permissions.
	// Empty disables the bypass.
	BypassRole string
	// CriticalRoles can not lose their last holder.
	CriticalRoles []string
	// DefaultRequirement applies to resources without a stored requirement,
	// e.g. "permission:central_access", "any_role:ADMIN,INSCRITO" or "public".
	DefaultRequirement string
	Session            SessionAuth
	JWT                JWTAuth
	OIDC               OIDCAuth
}

// SessionAuth reads the user id from a session cookie stored in the database.
type SessionAuth struct {
	Enabled    bool
	CookieName string
	Table      string
}

// JWTAuth reads the user id from an HS256 bearer token.
type JWTAuth struct {
	Enabled     bool
	Secret      string
	UserIDClaim string
}

// OIDCAuth reads the user id from the subject of a bearer OIDC ID token.
type OIDCAuth struct {
	Enabled     bool
	ProviderURL string
	ClientID    string
}

// Cache configures the permission resolver cache.
type Cache struct {
	Enabled bool
	Backend string        // memory or redis
	TTL     time.Duration // upper bound on staleness for out-of-process changes
	Redis   Redis
}

// Redis connection settings.
type Redis struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Audit configures decision reporting.
type Audit struct {
	RecordAllows bool
	QueueSize    int
	Sinks        []string // db, log, datadog
	DataDog      DataDog
}

// DataDog implements a datadog logs intake config.
type DataDog struct {
	ServiceName string
	Source      string
	APIKey      string // API Key defined at datadog
	Site        string // Regional Site aka DD_SITE ("datadoghq.eu")
	Timeout     time.Duration
}
