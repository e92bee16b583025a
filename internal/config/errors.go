package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownGormEngine error if config db.gormengine is not supported.
	ErrUnknownGormEngine = errors.New("toml config db.gormengine must be one of mysql, postgres, sqlite")

	// ErrUnknownCacheBackend error if config cache.backend is not supported.
	ErrUnknownCacheBackend = errors.New("toml config cache.backend must be memory or redis")

	// ErrJWTSecretEmpty error if jwt identity is enabled without a secret.
	ErrJWTSecretEmpty = errors.New("toml config auth.jwt.secret can not be empty when jwt is enabled")

	// ErrUnknownAuditSink error if config audit.sinks names an unsupported sink.
	ErrUnknownAuditSink = errors.New("toml config audit.sinks must contain only db, log or datadog")
)
