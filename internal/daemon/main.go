// Package daemon assembles the authorization service from its configuration.
package daemon

import (
	"context"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/comunidade-central/accessctl/internal/audit"
	"github.com/comunidade-central/accessctl/internal/auth"
	"github.com/comunidade-central/accessctl/internal/cache"
	"github.com/comunidade-central/accessctl/internal/config"
	"github.com/comunidade-central/accessctl/internal/db"
	"github.com/comunidade-central/accessctl/internal/db/dsn"
	"github.com/comunidade-central/accessctl/internal/web"
	"github.com/comunidade-central/accessctl/internal/web/middleware/identity"
	"github.com/comunidade-central/accessctl/internal/web/session"
)

// ErrSessionEngine is returned when session identity is enabled on an engine without session storage.
var ErrSessionEngine = errors.New("session identity requires the mysql or postgres engine")

// Daemon represents the main application daemon.
type Daemon struct {
	cfg         *config.Config
	db          *gorm.DB
	AuthService *auth.Service
	webService  *web.Service
	recorder    *audit.Recorder
	closers     []io.Closer
}

// Start serves http until a termination signal arrives, then releases every resource.
func (d *Daemon) Start() error {
	go func() {
		if err := d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port)); err != nil {
			log.Error().Err(err).Msg("web service stopped")
		}
	}()

	d.webService.WaitShutdown()
	d.Close()

	return nil
}

// Close flushes the decision log and closes caches, session storage and the database.
func (d *Daemon) Close() {
	if d.recorder != nil {
		d.recorder.Close()
	}

	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close resource")
		}
	}

	if sqlDB, err := d.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Open connects and migrates the database and builds the auth service without the web layer.
// Used by the command line tools.
func Open(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	gormDB, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}

	if err = db.Migrate(gormDB); err != nil {
		return nil, err
	}

	d := &Daemon{cfg: cfg, db: gormDB}

	opts := []auth.ServiceOption{
		auth.WithBypass(cfg.Auth.BypassRole),
		auth.WithCriticalRoles(cfg.Auth.CriticalRoles...),
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(cfg.Cache)
		if err != nil {
			d.Close()
			return nil, errors.Wrap(err, "failed to create permission cache")
		}

		d.closers = append(d.closers, c)
		opts = append(opts, auth.WithCache(c))
	}

	d.recorder, err = audit.New(cfg.Audit, gormDB)
	if err != nil {
		d.Close()
		return nil, errors.Wrap(err, "failed to create audit recorder")
	}

	opts = append(opts, auth.WithDecisionRecorder(d.recorder, cfg.Audit.RecordAllows))

	d.AuthService = auth.NewService(gormDB, opts...)

	if err = Seed(ctx, d.AuthService, ""); err != nil {
		d.Close()
		return nil, errors.Wrap(err, "failed to seed database")
	}

	return d, nil
}

// New creates the daemon with its web service.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	d, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	providers, err := d.identityProviders(ctx)
	if err != nil {
		d.Close()
		return nil, err
	}

	d.webService = web.New(cfg, d.AuthService, providers...)

	return d, nil
}

func (d *Daemon) identityProviders(ctx context.Context) ([]identity.Provider, error) {
	var (
		providers []identity.Provider
		authCfg   = d.cfg.Auth
	)

	if authCfg.Session.Enabled {
		storage, err := sessionStorage(d.cfg)
		if err != nil {
			return nil, err
		}

		d.closers = append(d.closers, storage)
		session.Init(storage)

		providers = append(providers, identity.NewSession(authCfg.Session.CookieName))
	}

	if authCfg.JWT.Enabled {
		providers = append(providers, identity.NewJWT(authCfg.JWT))
	}

	if authCfg.OIDC.Enabled {
		p, err := identity.NewOIDC(ctx, authCfg.OIDC)
		if err != nil {
			return nil, errors.Wrap(err, "failed to initialise oidc identity")
		}

		providers = append(providers, p)
	}

	if len(providers) == 0 {
		log.Warn().Msg("no identity provider enabled: every caller is anonymous")
	}

	return providers, nil
}

func sessionStorage(cfg *config.Config) (fiber.Storage, error) {
	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.URI(cfg),
			Table:         cfg.Auth.Session.Table,
		}), nil
	case config.EnginePostgres:
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.URI(cfg),
			Table:         cfg.Auth.Session.Table,
		}), nil
	default:
		return nil, ErrSessionEngine
	}
}
