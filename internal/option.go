package internal

import "io"

// Option configures the application before Run starts it.
type Option func(*application)

type application struct {
	config    *Config
	logWriter io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogWriter redirects log output away from stdout. Tests use this to
// keep server logs out of their output.
func WithLogWriter(w io.Writer) Option {
	return func(a *application) {
		a.logWriter = w
	}
}
