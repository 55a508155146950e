// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/softstone/pkg/logging"
)

var (
	// commandsTotal counts controller commands by dispatch path.
	// Labels: "quit", "name", "version", "genmove", "passthrough"
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "softstone_commands_total",
		Help: "Controller commands by dispatch path",
	}, []string{"command"})

	// overridesTotal counts genmove cycles where the engine's own move
	// was replaced. Pass and resign short-circuits are not counted.
	overridesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "softstone_overrides_total",
		Help: "Move generations where the engine's choice was overridden",
	})

	// overrideDeviation records how far the adopted move's win rate sat
	// from the configured target, in percentage points.
	overrideDeviation = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "softstone_override_deviation_percent",
		Help:    "Absolute win-rate deviation of adopted moves from the target",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 50},
	})
)

// startMetricsServer serves the Prometheus registry on addr in the
// background. The proxy does not wait for it and keeps running if the
// listener fails; metrics are a convenience, not part of the protocol
// surface.
func startMetricsServer(addr string, log *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("metrics listener started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics listener stopped", "error", err.Error())
		}
	}()
}
