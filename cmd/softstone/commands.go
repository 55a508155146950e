// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath  string // path to the YAML configuration file
	engineDebug bool   // relay the engine's raw stderr chatter to ours

	rootCmd = &cobra.Command{
		Use:   "softstone",
		Short: "A GTP proxy that keeps a Go engine's win rate near a target",
		Long: `Softstone sits between a GTP controller (a GUI or tournament
manager) and a strong analysis engine. On every genmove it reads the
engine's own candidate analysis and plays the candidate whose win
probability is closest to the configured target, instead of the best
one. Everything else a controller sends is relayed unmodified.

Run it wherever the controller expects a GTP engine binary:

  softstone --config softstone.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runProxyCommand, // Defined in proxy.go
	}
)

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "softstone.yaml",
		"Path to the YAML configuration file")
	rootCmd.Flags().BoolVar(&engineDebug, "engine-debug", false,
		"Relay the engine's raw diagnostic output to stderr")
}
