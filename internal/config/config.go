// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvConfigJSON names the environment variable holding a JSON config override.
const EnvConfigJSON = "ACCESSCTL_CONFIG_JSON"

const (
	defaultShutDownTime    = 5
	defaultCacheTTL        = 5 * time.Second
	defaultAuditQueueSize  = 1024
	defaultAdminPermission = "manage_roles"
	defaultRequirement     = "permission:central_access"
	defaultSessionCookie   = "session"
	defaultSessionTable    = "sessions"
	defaultJWTUserIDClaim  = "userId"
	defaultRedisKeyPrefix  = "accessctl:grants:"
	defaultDataDogSource   = "accessctl"
	defaultDataDogTimeout  = 5 * time.Second
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(path, "main.toml"))
	v.SetConfigType("toml")

	if err = v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err = v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read config override from env")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate config settings and fill in defaults for optional ones.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	// validate webserver listening port
	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	if c.Webserver.CheckAliveURI == "" {
		c.Webserver.CheckAliveURI = "/checkalive"
	}

	switch c.DB.GormEngine {
	case "":
		c.DB.GormEngine = EngineSQLite
	case EngineMySQL, EnginePostgres, EngineSQLite:
	default:
		return errors.Wrap(ErrUnknownGormEngine, invalidErrMessage)
	}

	if err := validateAuth(&c.Auth); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	if err := validateCache(&c.Cache); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	if err := validateAudit(&c.Audit); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	return nil
}

func validateAuth(a *Auth) error {
	if a.AdminPermission == "" {
		a.AdminPermission = defaultAdminPermission
	}

	if a.DefaultRequirement == "" {
		a.DefaultRequirement = defaultRequirement
	}

	if a.Session.CookieName == "" {
		a.Session.CookieName = defaultSessionCookie
	}

	if a.Session.Table == "" {
		a.Session.Table = defaultSessionTable
	}

	if a.JWT.UserIDClaim == "" {
		a.JWT.UserIDClaim = defaultJWTUserIDClaim
	}

	if a.JWT.Enabled && a.JWT.Secret == "" {
		return ErrJWTSecretEmpty
	}

	return nil
}

func validateCache(c *Cache) error {
	switch c.Backend {
	case "":
		c.Backend = "memory"
	case "memory", "redis":
	default:
		return ErrUnknownCacheBackend
	}

	if c.TTL <= 0 {
		c.TTL = defaultCacheTTL
	}

	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = defaultRedisKeyPrefix
	}

	return nil
}

func validateAudit(a *Audit) error {
	if a.QueueSize <= 0 {
		a.QueueSize = defaultAuditQueueSize
	}

	if len(a.Sinks) == 0 {
		a.Sinks = []string{"log"}
	}

	for _, sink := range a.Sinks {
		if !slices.Contains([]string{"db", "log", "datadog"}, sink) {
			return ErrUnknownAuditSink
		}
	}

	if a.DataDog.Source == "" {
		a.DataDog.Source = defaultDataDogSource
	}

	if a.DataDog.Timeout <= 0 {
		a.DataDog.Timeout = defaultDataDogTimeout
	}

	return nil
}
