// Package web wires the fiber application of the authorization service.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/comunidade-central/accessctl/internal/auth"
	"github.com/comunidade-central/accessctl/internal/config"
	fiberlogger "github.com/comunidade-central/accessctl/internal/logger/adapter/fiber"
	"github.com/comunidade-central/accessctl/internal/web/handler"
	"github.com/comunidade-central/accessctl/internal/web/handler/admin/assignment"
	audithandler "github.com/comunidade-central/accessctl/internal/web/handler/admin/audit"
	"github.com/comunidade-central/accessctl/internal/web/handler/admin/permission"
	requirementhandler "github.com/comunidade-central/accessctl/internal/web/handler/admin/requirement"
	"github.com/comunidade-central/accessctl/internal/web/handler/admin/role"
	"github.com/comunidade-central/accessctl/internal/web/handler/authz"
	"github.com/comunidade-central/accessctl/internal/web/middleware/identity"
)

// MetricsPath serves the prometheus metrics.
const MetricsPath = "/metrics"

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	authService  *auth.Service
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for a termination signal and shuts the web service down gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown fails the checkalive probe for ShutDownTime seconds, then stops the http server.
func (s *Service) Shutdown() {
	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// Alive reports whether checkalive answers OK.
func (s *Service) Alive() bool {
	return s.alive.Load()
}

// New creates the web service. Requests are identified by providers in order.
func New(cfg *config.Config, authService *auth.Service, providers ...identity.Provider) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if authService == nil {
		panic("auth service cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	service := &Service{
		cfg:          cfg,
		App:          app,
		authService:  authService,
		fastShutDown: cfg.DevMode,
	}
	service.alive.Store(true)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	if cfg.Webserver.CleanPath {
		app.Use(cleanPath)
	}

	app.Use(identity.Middleware(providers...))

	checkAliveURI := cfg.Webserver.CheckAliveURI

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:            cfg.Log,
		CacheControlError: fiberlogger.ConfigDefault.CacheControlError,
		CheckAliveURI:     checkAliveURI,
		UserIDLocal:       auth.UserIDLocal,
	}))

	app.Get(checkAliveURI, service.checkAlive)
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	for _, h := range []handler.Service{
		&role.Handler,
		&permission.Handler,
		&assignment.Handler,
		&requirementhandler.Handler,
		&audithandler.Handler,
		&authz.Handler,
	} {
		h.Init(app, cfg, authService)
	}

	return service
}

func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).SendString("shutting down")
	}

	return c.SendString("OK")
}

// cleanPath collapses duplicate slashes and dot segments before routing.
func cleanPath(c *fiber.Ctx) error {
	p := c.Path()
	if p == "" || (!strings.Contains(p, "//") && !strings.Contains(p, "/.")) {
		return c.Next()
	}

	cleaned := path.Clean(p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}

	c.Path(cleaned)

	return c.Next()
}
