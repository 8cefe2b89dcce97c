// Package config loads the daemon configuration: defaults, an optional
// YAML file, then LAUGHTRACK_* environment overrides, in that order.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hahalabs/laughtrack/pkg/audioio"
	"github.com/hahalabs/laughtrack/pkg/clip"
	"github.com/hahalabs/laughtrack/pkg/laugh"
	"github.com/hahalabs/laughtrack/pkg/loudness"
	"github.com/hahalabs/laughtrack/pkg/score"
	"github.com/hahalabs/laughtrack/pkg/session"
	"github.com/hahalabs/laughtrack/pkg/store"
	"github.com/hahalabs/laughtrack/pkg/web"
)

// Config aggregates every component's configuration.
type Config struct {
	Audio    audioio.Config     `yaml:"audio"`
	Loudness loudness.Config    `yaml:"loudness"`
	Laugh    laugh.Config       `yaml:"laugh"`
	Clip     clip.Config        `yaml:"clip"`
	Score    score.Config       `yaml:"score"`
	Session  session.Config     `yaml:"session"`
	Remote   store.RemoteConfig `yaml:"remote"`
	Web      web.Config         `yaml:"web"`

	// StorePath is the local pending cache file. Empty selects
	// ~/.laughtrack/pending.json.
	StorePath string `yaml:"store_path"`
}

// Default returns the full default configuration.
func Default() Config {
	return Config{
		Audio:    audioio.DefaultConfig(),
		Loudness: loudness.DefaultConfig(),
		Laugh:    laugh.DefaultConfig(),
		Clip:     clip.DefaultConfig(),
		Score:    score.DefaultConfig(),
		Session:  session.DefaultConfig(),
		Remote:   store.DefaultRemoteConfig(),
		Web:      web.DefaultConfig(),
	}
}

// Load builds the configuration. A missing file at an explicitly given
// path is an error; an empty path skips the file layer entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides file values from LAUGHTRACK_* variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("LAUGHTRACK_PORT"); v != "" {
		c.Web.Port = v
	}
	if v := os.Getenv("LAUGHTRACK_AUDIO_BACKEND"); v != "" {
		c.Audio.Backend = audioio.Backend(v)
	}
	if v := os.Getenv("LAUGHTRACK_AUDIO_ADDRESS"); v != "" {
		c.Audio.Address = v
	}
	if v := os.Getenv("LAUGHTRACK_REMOTE_URL"); v != "" {
		c.Remote.BaseURL = v
	}
	if v := os.Getenv("LAUGHTRACK_TOKEN"); v != "" {
		c.Remote.Token = v
	}
	if v := os.Getenv("LAUGHTRACK_SCORE_ENDPOINT"); v != "" {
		c.Score.Endpoint = v
	}
	if v := os.Getenv("LAUGHTRACK_STORE_PATH"); v != "" {
		c.StorePath = v
	}
}

// Validate checks every component configuration.
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return err
	}
	if err := c.Loudness.Validate(); err != nil {
		return err
	}
	if err := c.Laugh.Validate(); err != nil {
		return err
	}
	if err := c.Clip.Validate(); err != nil {
		return err
	}
	if err := c.Score.Validate(); err != nil {
		return err
	}
	return nil
}
