// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates the Softstone configuration file.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config is the root of the YAML configuration.
type Config struct {
	// Engine describes the subordinate analysis engine.
	Engine EngineConfig `yaml:"engine"`

	// Play holds the move-selection policy.
	Play PlayConfig `yaml:"play"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`

	// Metrics configures the optional Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// EngineConfig describes how the subordinate engine is launched.
type EngineConfig struct {
	Binary   string `yaml:"binary" validate:"required"`  // engine executable
	Weights  string `yaml:"weights" validate:"required"` // network weights file
	Visits   int    `yaml:"visits" validate:"gt=0"`      // per-move visit budget
	MaxMoves int    `yaml:"max_moves" validate:"gte=0"`  // -m opening randomness window
	Debug    bool   `yaml:"debug"`                       // relay raw engine stderr
}

// PlayConfig holds the selection policy knobs.
type PlayConfig struct {
	// TargetWinPercent is the win probability the proxy steers toward.
	TargetWinPercent float64 `yaml:"target_win_percent" validate:"gte=0,lte=100"`

	// MinVisits drops candidates the engine barely explored.
	MinVisits int `yaml:"min_visits" validate:"gte=0"`

	// MaxDropPercent bounds how far below the engine's top choice a
	// candidate may sit; 100 disables the filter.
	MaxDropPercent float64 `yaml:"max_drop_percent" validate:"gte=0,lte=100"`

	// PassTerminates refuses moves the engine ranked below passing.
	PassTerminates bool `yaml:"pass_terminates"`
}

// LogConfig configures the logging package.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig configures the optional Prometheus listener. An empty
// Listen address disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// DefaultConfig returns the configuration written on first run. The
// engine paths are placeholders the user has to fill in; validation
// rejects them empty.
func DefaultConfig() Config {
	return Config{
		Engine: EngineConfig{
			Visits:   100,
			MaxMoves: 30,
		},
		Play: PlayConfig{
			TargetWinPercent: 50.0,
			MinVisits:        0,
			MaxDropPercent:   100.0,
			PassTerminates:   false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// applyDefaults fills zero values that have non-zero defaults. Explicit
// zeros for MinVisits and PassTerminates are meaningful and untouched.
func (c *Config) applyDefaults() {
	if c.Engine.MaxMoves == 0 {
		c.Engine.MaxMoves = 30
	}
	if c.Play.MaxDropPercent == 0 {
		c.Play.MaxDropPercent = 100.0
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

var validate = validator.New()

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
