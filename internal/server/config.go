package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/feltpoker/felt/internal/game"
)

// Config is the complete server configuration.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
}

// ServerSettings contains the listener and session tuning.
type ServerSettings struct {
	Bind        string `hcl:"bind,optional"`
	MetricsBind string `hcl:"metrics_bind,optional"`
	LogLevel    string `hcl:"log_level,optional"`

	// Timeouts are whole seconds. Connect bounds the handshake, step
	// paces automatic phase advances, action bounds a player's turn.
	ConnectTimeoutSeconds int `hcl:"connect_timeout_seconds,optional"`
	StepTimeoutSeconds    int `hcl:"step_timeout_seconds,optional"`
	ActionTimeoutSeconds  int `hcl:"action_timeout_seconds,optional"`

	// MaxEventsPerUser sizes the per-connection inbound queue; the
	// shared queues hold this many events for every possible user.
	MaxEventsPerUser int `hcl:"max_events_per_user,optional"`
}

// GameSettings contains the table rules.
type GameSettings struct {
	MaxUsers   int `hcl:"max_users,optional"`
	MaxPlayers int `hcl:"max_players,optional"`
	BuyIn      int `hcl:"buy_in,optional"`
	SmallBlind int `hcl:"small_blind,optional"`
	BigBlind   int `hcl:"big_blind,optional"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Bind:                  "127.0.0.1:7979",
			LogLevel:              "info",
			ConnectTimeoutSeconds: 10,
			StepTimeoutSeconds:    5,
			ActionTimeoutSeconds:  30,
			MaxEventsPerUser:      16,
		},
		Game: GameSettings{
			MaxUsers:   12,
			MaxPlayers: 6,
			BuyIn:      200,
			SmallBlind: 5,
			BigBlind:   10,
		},
	}
}

// LoadConfig loads configuration from an HCL file. A missing file is
// not an error; it yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Bind == "" {
		config.Server.Bind = "127.0.0.1:7979"
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Server.ConnectTimeoutSeconds == 0 {
		config.Server.ConnectTimeoutSeconds = 10
	}
	if config.Server.StepTimeoutSeconds == 0 {
		config.Server.StepTimeoutSeconds = 5
	}
	if config.Server.ActionTimeoutSeconds == 0 {
		config.Server.ActionTimeoutSeconds = 30
	}
	if config.Server.MaxEventsPerUser == 0 {
		config.Server.MaxEventsPerUser = 16
	}
	if config.Game.MaxUsers == 0 {
		config.Game.MaxUsers = 12
	}
	if config.Game.MaxPlayers == 0 {
		config.Game.MaxPlayers = 6
	}
	if config.Game.BuyIn == 0 {
		config.Game.BuyIn = 200
	}
	if config.Game.SmallBlind == 0 {
		config.Game.SmallBlind = 5
	}
	if config.Game.BigBlind == 0 {
		config.Game.BigBlind = 10
	}

	return &config, nil
}

// Validate checks the configuration for values the server cannot run
// with.
func (c *Config) Validate() error {
	if c.Server.Bind == "" {
		return fmt.Errorf("bind address must not be empty")
	}
	if c.Server.ConnectTimeoutSeconds < 1 {
		return fmt.Errorf("connect timeout must be at least one second")
	}
	if c.Server.StepTimeoutSeconds < 1 {
		return fmt.Errorf("step timeout must be at least one second")
	}
	if c.Server.ActionTimeoutSeconds < c.Server.StepTimeoutSeconds {
		return fmt.Errorf("action timeout must not be shorter than the step timeout")
	}
	if c.Server.MaxEventsPerUser < 1 {
		return fmt.Errorf("max events per user must be positive")
	}
	if c.Game.MaxPlayers < 2 || c.Game.MaxPlayers > 6 {
		return fmt.Errorf("max players must be between 2 and 6")
	}
	if c.Game.MaxUsers < c.Game.MaxPlayers {
		return fmt.Errorf("max users must not be below max players")
	}
	if c.Game.SmallBlind <= 0 {
		return fmt.Errorf("small blind must be positive")
	}
	if c.Game.BigBlind <= c.Game.SmallBlind {
		return fmt.Errorf("big blind must be greater than small blind")
	}
	if c.Game.BuyIn < c.Game.BigBlind {
		return fmt.Errorf("buy-in must cover at least one big blind")
	}
	return nil
}

// ConnectTimeout is how long an accepted connection may remain
// unconfirmed before it is swept.
func (s ServerSettings) ConnectTimeout() time.Duration {
	return time.Duration(s.ConnectTimeoutSeconds) * time.Second
}

// StepTimeout is the pause between automatic phase advances.
func (s ServerSettings) StepTimeout() time.Duration {
	return time.Duration(s.StepTimeoutSeconds) * time.Second
}

// ActionTimeout is how long the acting player has before being folded
// and removed.
func (s ServerSettings) ActionTimeout() time.Duration {
	return time.Duration(s.ActionTimeoutSeconds) * time.Second
}

// Rules converts the game block into table settings.
func (g GameSettings) Rules() game.Settings {
	return game.Settings{
		MaxUsers:      g.MaxUsers,
		MaxPlayers:    g.MaxPlayers,
		BuyIn:         uint32(g.BuyIn),
		MinSmallBlind: uint32(g.SmallBlind),
		MinBigBlind:   uint32(g.BigBlind),
	}
}
