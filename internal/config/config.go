package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/inamate/diagram/internal/engine"
)

type Config struct {
	Port           int    `envconfig:"PORT" default:"8080"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	JWTSecret      string `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	AllowGuests    bool   `envconfig:"ALLOW_GUESTS" default:"true"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`

	// Editing behavior
	UndoHistory  int     `envconfig:"UNDO_HISTORY" default:"100"`
	GridSize     float64 `envconfig:"GRID_SIZE" default:"10"`
	HitTolerance float64 `envconfig:"HIT_TOLERANCE" default:"4"`

	AllowLoops          bool `envconfig:"ALLOW_LOOPS" default:"false"`
	AllowDanglingEdges  bool `envconfig:"ALLOW_DANGLING_EDGES" default:"true"`
	Multigraph          bool `envconfig:"MULTIGRAPH" default:"true"`
	ExtendParents       bool `envconfig:"EXTEND_PARENTS" default:"true"`
	ConstrainChildren   bool `envconfig:"CONSTRAIN_CHILDREN" default:"true"`
	ResetEdgesOnConnect bool `envconfig:"RESET_EDGES_ON_CONNECT" default:"true"`
	ResetEdgesOnMove    bool `envconfig:"RESET_EDGES_ON_MOVE" default:"false"`
	DisconnectOnMove    bool `envconfig:"DISCONNECT_ON_MOVE" default:"true"`
	PortsEnabled        bool `envconfig:"PORTS_ENABLED" default:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.UndoHistory < 0 {
		return nil, fmt.Errorf("UNDO_HISTORY must not be negative, got %d", cfg.UndoHistory)
	}
	if cfg.GridSize < 0 || cfg.HitTolerance < 0 {
		return nil, fmt.Errorf("GRID_SIZE and HIT_TOLERANCE must not be negative")
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Level parses LOG_LEVEL.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// Options maps the editing keys onto engine options.
func (c *Config) Options() engine.Options {
	opts := engine.DefaultOptions()
	opts.HistorySize = c.UndoHistory
	opts.Tolerance = c.HitTolerance

	opts.Graph.GridSize = c.GridSize
	opts.Graph.GridEnabled = c.GridSize > 0
	opts.Graph.ExtendParents = c.ExtendParents
	opts.Graph.ExtendParentsOnAdd = c.ExtendParents
	opts.Graph.ConstrainChildren = c.ConstrainChildren
	opts.Graph.ResetEdgesOnConnect = c.ResetEdgesOnConnect
	opts.Graph.ResetEdgesOnMove = c.ResetEdgesOnMove
	opts.Graph.DisconnectOnMove = c.DisconnectOnMove
	opts.Graph.PortsEnabled = c.PortsEnabled

	opts.Validation.AllowLoops = c.AllowLoops
	opts.Validation.AllowDanglingEdges = c.AllowDanglingEdges
	opts.Validation.Multigraph = c.Multigraph
	return opts
}

// Origins returns ALLOWED_ORIGINS as a list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// OriginPatterns returns the allowed origins as host patterns for the
// websocket handshake.
func (c *Config) OriginPatterns() []string {
	var out []string
	for _, o := range c.Origins() {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
		} else {
			out = append(out, o)
		}
	}
	return out
}
