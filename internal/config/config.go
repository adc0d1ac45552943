// Package config loads settings for both binaries: defaults, then an
// optional YAML file, then environment variables. Flags in cmd/ apply last.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"gridfall/internal/netqueue"
)

type Server struct {
	Addr            string        `yaml:"addr"`
	DBPath          string        `yaml:"db_path"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	StaleAfter      time.Duration `yaml:"stale_after"`
}

type Client struct {
	// Server is the websocket URL; empty means offline play.
	Server string `yaml:"server"`
	Nick   string `yaml:"nick"`
	// RequireServer makes an unreachable server fatal instead of falling
	// back to offline play.
	RequireServer bool   `yaml:"require_server"`
	ScoreFile     string `yaml:"score_file"`

	QueueTarget   int    `yaml:"queue_target"`
	QueueCapacity int    `yaml:"queue_capacity"`
	QueuePolicy   string `yaml:"queue_policy"` // "drop-oldest" or "reject"
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type Config struct {
	Server Server `yaml:"server"`
	Client Client `yaml:"client"`
	Log    Log    `yaml:"log"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			DBPath:          "gridfall.db",
			CleanupInterval: time.Minute,
			StaleAfter:      time.Hour,
		},
		Client: Client{
			ScoreFile:     "scores.txt",
			QueueTarget:   netqueue.DefaultTarget,
			QueueCapacity: netqueue.DefaultCapacity,
			QueuePolicy:   "drop-oldest",
		},
		Log: Log{Level: "info"},
	}
}

// Load applies the YAML file at path (skipped when path is empty) and then
// the environment, read through getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return cfg, fmt.Errorf("config file %s not found", path)
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg.applyEnv(getenv)
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) {
	if p := getenv("PORT"); p != "" {
		c.Server.Addr = ":" + p
	}
	if p := getenv("DB_PATH"); p != "" {
		c.Server.DBPath = p
	}
	if s := getenv("GRIDFALL_SERVER"); s != "" {
		c.Client.Server = s
	}
	if n := getenv("GRIDFALL_NICK"); n != "" {
		c.Client.Nick = n
	}
	if l := getenv("LOG_LEVEL"); l != "" {
		c.Log.Level = l
	}
}

// Validate checks values the binaries cannot recover from.
func (c Config) Validate() error {
	if c.Server.CleanupInterval <= 0 || c.Server.StaleAfter <= 0 {
		return errors.New("config: cleanup_interval and stale_after must be positive")
	}
	if c.Client.QueueTarget <= 0 {
		return fmt.Errorf("config: queue_target must be positive, got %d", c.Client.QueueTarget)
	}
	if _, err := c.Client.policy(); err != nil {
		return err
	}
	return nil
}

// Queue returns the piece queue settings.
func (c Client) Queue() netqueue.Config {
	p, _ := c.policy()
	return netqueue.Config{Target: c.QueueTarget, Capacity: c.QueueCapacity, Policy: p}
}

func (c Client) policy() (netqueue.Policy, error) {
	switch c.QueuePolicy {
	case "", "drop-oldest":
		return netqueue.DropOldest, nil
	case "reject":
		return netqueue.Reject, nil
	}
	return 0, fmt.Errorf("config: unknown queue_policy %q", c.QueuePolicy)
}
