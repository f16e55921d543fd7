// Package app provides the application context and dependency management
// for the accountsync CLI. It centralizes configuration, logging, and
// construction of the directory and roster clients.
package app

import (
	"github.com/rs/zerolog"

	"github.com/dartmouth/accountsync/internal/ipaas"
	"github.com/dartmouth/accountsync/internal/planon"
	"github.com/dartmouth/accountsync/pkg/errors"
)

// App represents the accountsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger
}

// New creates a new App instance with the given version information.
// The app is initialized with configuration loaded from the environment
// that can be customized using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	// Load configuration
	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	// Initialize logger
	logger := NewLogger(config)
	app.logger = &logger

	// Apply any custom options
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Planon returns a directory client built from the configured site URL
// and API key. Missing settings are a configuration error, not a panic.
func (a *App) Planon() (*planon.Client, error) {
	if a.config.PlanonURL == "" {
		return nil, errors.NewConfigError("planon", "PLANON_API_URL is not set", nil)
	}
	if a.config.PlanonAPIKey == "" {
		return nil, errors.NewConfigError("planon", "PLANON_API_KEY is not set", nil)
	}
	return planon.New(a.config.PlanonURL, a.config.PlanonAPIKey), nil
}

// Roster returns an identity feed client built from the configured
// base URL and API key.
func (a *App) Roster() (*ipaas.Client, error) {
	if a.config.IpaasURL == "" {
		return nil, errors.NewConfigError("ipaas", "IPAAS_API_URL is not set", nil)
	}
	if a.config.IpaasAPIKey == "" {
		return nil, errors.NewConfigError("ipaas", "IPAAS_API_KEY is not set", nil)
	}
	return ipaas.New(a.config.IpaasURL, a.config.IpaasAPIKey), nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}
