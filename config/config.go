// SPDX-FileCopyrightText: Copyright (C) 2025 The whisker authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package config implements the configuration for the whisker inbound
// processing engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/whisker-im/whisker/core/log"
)

const (
	defaultLogLevel    = "NOTICE"
	defaultResendDelay = 500 // milliseconds
)

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stdout will be used.
	File string

	// Level specifies the log level.
	Level string
}

func (l *Logging) validate() error {
	if !l.Disable && l.File != "" && !filepath.IsAbs(l.File) {
		return errors.New("config: log file path must be absolute")
	}
	return nil
}

// Engine is the inbound processing engine configuration.
type Engine struct {
	// StateFile is the boltdb file holding app-state sync keys,
	// identity mappings and history markers.
	StateFile string

	// ProcessHistory enables handling of history sync notifications.
	ProcessHistory bool

	// ResendDelay is the delay in milliseconds before a placeholder
	// resend is re-emitted.
	ResendDelay int
}

// ResendDelayDuration returns ResendDelay as a time.Duration.
func (e *Engine) ResendDelayDuration() time.Duration {
	return time.Duration(e.ResendDelay) * time.Millisecond
}

// Config is the top level whisker configuration.
type Config struct {
	Logging *Logging
	Engine  *Engine
}

// FixupAndValidate applies defaults and validates the configuration.
func (c *Config) FixupAndValidate() error {
	if c.Logging == nil {
		c.Logging = &Logging{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if err := c.Logging.validate(); err != nil {
		return err
	}
	if c.Engine == nil {
		c.Engine = &Engine{}
	}
	if c.Engine.ResendDelay <= 0 {
		c.Engine.ResendDelay = defaultResendDelay
	}
	return nil
}

// InitLogBackend creates the logging backend described by the
// configuration.
func (c *Config) InitLogBackend() (*log.Backend, error) {
	return log.New(c.Logging.File, c.Logging.Level, c.Logging.Disable)
}

// Load parses and validates the provided buffer b as a config file body
// and returns the Config.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: undecoded keys in config file: %v", undecoded)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses, and validates the provided file and returns
// the Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
