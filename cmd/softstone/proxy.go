// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/softstone/cmd/softstone/config"
	"github.com/AleutianAI/softstone/cmd/softstone/internal/analysis"
	"github.com/AleutianAI/softstone/cmd/softstone/internal/engine"
	"github.com/AleutianAI/softstone/cmd/softstone/internal/stream"
	"github.com/AleutianAI/softstone/pkg/logging"
)

// idlePollThreshold is how many consecutive empty polls the loop
// tolerates before it starts sleeping between iterations.
const idlePollThreshold = 10

// runProxyCommand wires config, logging, metrics, and the engine
// session together and runs the dispatch loop until the controller
// quits or a fatal condition surfaces.
func runProxyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		// The logger is not up yet; this is the one place errors go to
		// stderr directly.
		fmt.Fprintf(os.Stderr, "softstone: %v\n", err)
		return err
	}
	if engineDebug {
		cfg.Engine.Debug = true
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Log.Level),
		LogDir:  cfg.Log.Dir,
		Service: "softstone",
		// Controllers run us with stderr on a pipe; switch to JSON there
		// unless the config forces it anyway.
		JSON: cfg.Log.JSON || !isatty.IsTerminal(os.Stderr.Fd()),
	})
	defer logger.Close()

	logger.Info("policy loaded",
		"target_win_percent", cfg.Play.TargetWinPercent,
		"min_visits", cfg.Play.MinVisits,
		"max_drop_percent", cfg.Play.MaxDropPercent,
		"pass_terminates", cfg.Play.PassTerminates,
	)

	if cfg.Metrics.Listen != "" {
		startMetricsServer(cfg.Metrics.Listen, logger)
	}

	session, err := engine.Start(engine.Config{
		Binary:   cfg.Engine.Binary,
		Weights:  cfg.Engine.Weights,
		Visits:   cfg.Engine.Visits,
		MaxMoves: cfg.Engine.MaxMoves,
		Debug:    cfg.Engine.Debug,
	}, logger, os.Stderr)
	if err != nil {
		logger.Error("engine startup failed", "error", err.Error())
		return err
	}

	input := stream.NewQueue()
	go func() { _ = stream.ReadLines(os.Stdin, input) }()

	p := &proxy{
		session: session,
		policy: analysis.Policy{
			TargetWinPercent: cfg.Play.TargetWinPercent,
			MinVisits:        cfg.Play.MinVisits,
			MaxDropPercent:   cfg.Play.MaxDropPercent,
			PassTerminates:   cfg.Play.PassTerminates,
		},
		input:     input,
		out:       os.Stdout,
		log:       logger,
		idleSleep: time.Second,
	}

	runErr := p.run()
	closeErr := session.Close()
	if runErr != nil {
		logger.Error("proxy terminated", "error", runErr.Error())
		return runErr
	}
	if closeErr != nil {
		logger.Warn("engine shutdown", "error", closeErr.Error())
	}
	return nil
}

// engineSession is the slice of engine.Session the dispatch loop needs.
// Abstracting it lets unit tests script engine behavior without a real
// subprocess.
type engineSession interface {
	Send(command string) error
	Passthrough(command string, w io.Writer) error
	GenMove(color string, policy analysis.Policy, w io.Writer) (*analysis.Selection, error)
	DrainOutput(w io.Writer) bool
	DrainDiagnostics() bool
}

// proxy is the single-threaded dispatch loop between the controller and
// the engine session. The three stream pumps are the only concurrency;
// everything here consumes their queues in one goroutine.
type proxy struct {
	session   engineSession
	policy    analysis.Policy
	input     *stream.Queue // controller stdin
	out       io.Writer     // controller stdout, protocol only
	log       *logging.Logger
	idleSleep time.Duration
}

// run polls until the controller sends quit, hangs up, or a fatal
// condition surfaces. Each iteration first flushes engine chatter so
// unsolicited output reaches the controller promptly, then dispatches
// at most one controller command.
func (p *proxy) run() error {
	idle := 0
	for {
		changed := p.session.DrainDiagnostics()
		if p.session.DrainOutput(p.out) {
			changed = true
		}

		line, ok := p.input.TryPop()
		if !ok {
			if p.input.Done() {
				p.log.Info("controller closed stdin")
				return nil
			}
			if !changed {
				idle++
			}
			if idle > idlePollThreshold {
				time.Sleep(p.idleSleep)
			}
			continue
		}
		idle = 0

		command := strings.TrimSpace(line)
		if command == "" {
			continue
		}
		if err := p.dispatch(command); err != nil {
			return err
		}
		if command == "quit" {
			return nil
		}
	}
}

// dispatch handles one controller command. Only quit, name, version,
// and genmove get special treatment; the rest of the GTP command set is
// relayed verbatim.
func (p *proxy) dispatch(command string) error {
	p.log.Info("controller command", "command", command)

	switch {
	case command == "quit":
		commandsTotal.WithLabelValues("quit").Inc()
		return p.session.Send("quit")

	case command == "name":
		commandsTotal.WithLabelValues("name").Inc()
		return p.replyBlock("Softstone")

	case command == "version":
		commandsTotal.WithLabelValues("version").Inc()
		return p.replyBlock(versionText(p.policy))

	case strings.HasPrefix(command, "genmove "):
		// The command is space-trimmed, so the prefix guarantees a
		// color token. A bare "genmove" falls through to the engine,
		// which produces the protocol error itself.
		commandsTotal.WithLabelValues("genmove").Inc()
		selection, err := p.session.GenMove(strings.Fields(command)[1], p.policy, p.out)
		if err != nil {
			return err
		}
		if selection != nil {
			overridesTotal.Inc()
			overrideDeviation.Observe(math.Abs(selection.Deviation))
		}
		return nil

	default:
		commandsTotal.WithLabelValues("passthrough").Inc()
		return p.session.Passthrough(command, p.out)
	}
}

// replyBlock emits a complete locally-answered GTP success block.
func (p *proxy) replyBlock(text string) error {
	if _, err := io.WriteString(p.out, "= "+text+"\r\n\r\n"); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}
	return nil
}

// versionText derives the version blurb from the active policy, so a
// curious operator asking the proxy for its version learns what it is
// actually doing to the engine underneath.
func versionText(policy analysis.Policy) string {
	var b strings.Builder
	b.WriteString("1.0, using a Leela Zero style engine as backend. ")
	fmt.Fprintf(&b, "This bot tries to keep its winning percentage at %.1f%%. ",
		policy.TargetWinPercent)
	b.WriteString("Only moves the engine itself considered are played, ")
	b.WriteString("so positions it refuses to analyze badly stay won. ")
	fmt.Fprintf(&b, "Moves dropping the winning probability more than %.1f%% are never played. ",
		policy.MaxDropPercent)
	if policy.PassTerminates {
		b.WriteString("Moves worse than passing are never played. ")
	}
	b.WriteString("See https://github.com/AleutianAI/softstone for more information.")
	return b.String()
}
