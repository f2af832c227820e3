package internal

import "io"

// Mode selects what Run does.
type Mode string

// Run modes.
const (
	ModeServe   Mode = "serve"
	ModeMCP     Mode = "mcp"
	ModeRebuild Mode = "rebuild"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	mode    Mode
	version string
	out     io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode sets the run mode. The default is ModeServe.
func WithMode(m Mode) Option {
	return func(a *application) {
		a.mode = m
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithOutput sets where ModeRebuild prints its summary.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}
