// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

const validConfigYAML = `engine:
  binary: /usr/bin/leelaz
  weights: /var/lib/leelaz/best-network
  visits: 250
play:
  target_win_percent: 45.0
  min_visits: 5
  max_drop_percent: 20.0
  pass_terminates: true
log:
  level: debug
`

func TestLoad_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "softstone.yaml")
	if err := os.WriteFile(path, []byte(validConfigYAML), 0644); err != nil {
		t.Fatalf("write test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Engine.Binary != "/usr/bin/leelaz" {
		t.Errorf("Engine.Binary = %q", cfg.Engine.Binary)
	}
	if cfg.Engine.Visits != 250 {
		t.Errorf("Engine.Visits = %d, want 250", cfg.Engine.Visits)
	}
	if cfg.Engine.MaxMoves != 30 {
		t.Errorf("Engine.MaxMoves = %d, want defaulted 30", cfg.Engine.MaxMoves)
	}
	if cfg.Play.TargetWinPercent != 45.0 {
		t.Errorf("Play.TargetWinPercent = %v, want 45.0", cfg.Play.TargetWinPercent)
	}
	if !cfg.Play.PassTerminates {
		t.Error("Play.PassTerminates should be true")
	}
}

func TestLoad_MissingFileCreatesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "softstone.yaml")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() on a missing file should error after writing the template")
	}

	data, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("template was not created: %v", readErr)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if cfg.Engine.Visits != 100 {
		t.Errorf("template Engine.Visits = %d, want 100", cfg.Engine.Visits)
	}
	if cfg.Play.MaxDropPercent != 100.0 {
		t.Errorf("template Play.MaxDropPercent = %v, want 100.0", cfg.Play.MaxDropPercent)
	}
}

func TestLoad_MissingEnginePathsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "softstone.yaml")
	content := "engine:\n  visits: 100\nplay:\n  target_win_percent: 50\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write test config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() without engine paths should fail validation")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "softstone.yaml")
	if err := os.WriteFile(path, []byte("engine: [not a mapping"), 0644); err != nil {
		t.Fatalf("write test config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() on malformed YAML should error")
	}
}
