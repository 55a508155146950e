// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine owns the subordinate analysis engine: its process, its
// three streams, and the GTP choreography needed to substitute its move.
package engine

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/softstone/cmd/softstone/internal/analysis"
	"github.com/AleutianAI/softstone/cmd/softstone/internal/stream"
	"github.com/AleutianAI/softstone/pkg/logging"
)

// Config describes how to launch the subordinate engine.
type Config struct {
	// Binary is the engine executable path.
	Binary string

	// Weights is the network weights file passed via -w.
	Weights string

	// Visits is the per-move visit budget passed via -v.
	Visits int

	// MaxMoves is the engine's -m randomness window for opening moves.
	MaxMoves int

	// Debug relays the engine's raw diagnostic chatter to our stderr
	// instead of discarding it.
	Debug bool
}

// Session wraps one running engine process.
//
// The engine's stdout and stderr are pumped into queues by background
// goroutines; every other method runs on the single control thread, so
// the request/reply choreography never races with itself. A Session
// spans the whole program run: one engine, one game, one process.
type Session struct {
	cfg Config
	log *logging.Logger
	id  string

	cmd   *exec.Cmd
	stdin io.WriteCloser
	in    *bufio.Writer

	out  *stream.Queue // engine stdout: GTP replies and chatter
	diag *stream.Queue // engine stderr: analysis diagnostics

	pumps     *errgroup.Group
	debugSink io.Writer
}

// Start launches the engine and begins pumping its streams.
//
// The engine is started in GTP mode with the configured weights and
// visit budget. Start returns once the process is running; the GTP
// handshake happens lazily through the first forwarded command.
func Start(cfg Config, log *logging.Logger, debugSink io.Writer) (*Session, error) {
	id := uuid.NewString()
	sessionLog := log.With("session_id", id)

	args := []string{
		"-w", cfg.Weights,
		"-v", strconv.Itoa(cfg.Visits),
		"-g",
		"-m", strconv.Itoa(cfg.MaxMoves),
	}
	cmd := exec.Command(cfg.Binary, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stderr pipe: %w", err)
	}

	sessionLog.Info("starting engine", "binary", cfg.Binary, "visits", cfg.Visits)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start engine %s: %w", cfg.Binary, err)
	}

	s := &Session{
		cfg:       cfg,
		log:       sessionLog,
		id:        id,
		cmd:       cmd,
		stdin:     stdin,
		in:        bufio.NewWriter(stdin),
		out:       stream.NewQueue(),
		diag:      stream.NewQueue(),
		pumps:     &errgroup.Group{},
		debugSink: debugSink,
	}
	s.pumps.Go(func() error { return stream.ReadLines(stdout, s.out) })
	s.pumps.Go(func() error { return stream.ReadLines(stderr, s.diag) })

	sessionLog.Info("engine started")
	return s, nil
}

// ID returns the session identifier carried in the session's logs.
func (s *Session) ID() string {
	return s.id
}

// Send forwards one command to the engine, CRLF-terminated.
func (s *Session) Send(command string) error {
	if _, err := s.in.WriteString(command + "\r\n"); err != nil {
		return fmt.Errorf("write to engine: %w", err)
	}
	if err := s.in.Flush(); err != nil {
		return fmt.Errorf("flush to engine: %w", err)
	}
	return nil
}

// Passthrough forwards a command verbatim and relays the engine's reply.
//
// Every stdout line is copied to w up to and including the first reply
// marker ("=" success or "?" failure). The blank line terminating the
// reply block stays queued and reaches the controller through the
// routine drain. This is the default path for the bulk of the GTP
// command set.
func (s *Session) Passthrough(command string, w io.Writer) error {
	if err := s.Send(command); err != nil {
		return err
	}
	for {
		line, ok := s.out.Pop()
		if !ok {
			return fmt.Errorf("engine closed stdout during %q", command)
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return fmt.Errorf("relay reply: %w", err)
		}
		if isReply(line) {
			return nil
		}
	}
}

// GenMove runs the move-override choreography for one generation cycle.
//
// The underlying genmove is forwarded and the engine's pick extracted
// from its reply. "resign" and "pass" are accepted as-is and reported
// with a nil Selection. For anything else the candidate block is read
// off the diagnostic stream, the selector picks the move closest to the
// policy target, and the engine is told to undo and replay the
// substitute before the reply goes out to the controller on w.
func (s *Session) GenMove(color string, policy analysis.Policy, w io.Writer) (*analysis.Selection, error) {
	if err := s.Send("genmove " + color); err != nil {
		return nil, err
	}

	move, err := s.waitForMove(w)
	if err != nil {
		return nil, err
	}
	s.log.Info("engine wanted to play", "move", move, "color", color)

	// Resignation and passing are never overridden.
	if move == "resign" || move == "pass" {
		return nil, s.reply(w, move)
	}

	if err := s.awaitDiagnosticStart(); err != nil {
		return nil, err
	}
	candidates, err := analysis.ReadBlock(s.diag, policy.MinVisits, s.log)
	if err != nil {
		return nil, err
	}
	selected, err := analysis.Select(candidates, policy, s.log)
	if err != nil {
		return nil, err
	}
	s.log.Info("overriding move",
		"engine_move", move,
		"chosen_move", selected.Move,
		"deviation", fmt.Sprintf("%.2f", selected.Deviation),
	)

	// Undo the engine's own move and force the substitute onto the board.
	if err := s.Send("undo"); err != nil {
		return nil, err
	}
	if err := s.consumeAck("undo"); err != nil {
		return nil, err
	}
	if err := s.Send(fmt.Sprintf("play %s %s", color, selected.Move)); err != nil {
		return nil, err
	}
	if err := s.consumeAck("play"); err != nil {
		return nil, err
	}

	return &selected, s.reply(w, selected.Move)
}

// DrainOutput relays buffered unsolicited engine stdout to w.
// Returns whether anything moved.
func (s *Session) DrainOutput(w io.Writer) bool {
	return stream.Drain(s.out, w)
}

// DrainDiagnostics flushes buffered engine stderr, relaying it to the
// debug sink when engine debugging is on and discarding it otherwise.
// Returns whether anything moved.
func (s *Session) DrainDiagnostics() bool {
	if s.cfg.Debug {
		return stream.Drain(s.diag, s.debugSink)
	}
	return stream.Discard(s.diag)
}

// Close shuts the engine down and reaps the process and stream pumps.
func (s *Session) Close() error {
	_ = s.stdin.Close()
	waitErr := s.cmd.Wait()
	pumpErr := s.pumps.Wait()
	s.log.Info("engine stopped")
	if waitErr != nil {
		return fmt.Errorf("engine exit: %w", waitErr)
	}
	if pumpErr != nil {
		return fmt.Errorf("stream pump: %w", pumpErr)
	}
	return nil
}

// waitForMove blocks for the engine's genmove reply. Lines without a
// reply marker are relayed to w as chatter; the first "=" line yields
// the engine's move token.
func (s *Session) waitForMove(w io.Writer) (string, error) {
	for {
		line, ok := s.out.Pop()
		if !ok {
			return "", fmt.Errorf("engine closed stdout while generating a move")
		}
		if strings.HasPrefix(line, "=") {
			return strings.TrimSpace(strings.TrimPrefix(line, "=")), nil
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return "", fmt.Errorf("relay chatter: %w", err)
		}
	}
}

// awaitDiagnosticStart discards or relays diagnostic lines until the
// opening sentinel of the candidate block.
func (s *Session) awaitDiagnosticStart() error {
	for {
		line, ok := s.diag.Pop()
		if !ok {
			return fmt.Errorf("engine closed stderr before the candidate block")
		}
		if analysis.IsSentinel(line) {
			return nil
		}
		if s.cfg.Debug {
			_, _ = io.WriteString(s.debugSink, line+"\n")
		}
	}
}

// consumeAck swallows stdout lines until the reply marker that
// acknowledges an override command.
func (s *Session) consumeAck(command string) error {
	for {
		line, ok := s.out.Pop()
		if !ok {
			return fmt.Errorf("engine closed stdout awaiting %s ack", command)
		}
		s.log.Debug("consumed", "line", line, "awaiting", command)
		if strings.HasPrefix(line, "=") {
			return nil
		}
	}
}

// reply emits the GTP move reply for this cycle. The engine's own
// pending blank terminator completes the block on the drain path.
func (s *Session) reply(w io.Writer, move string) error {
	if _, err := io.WriteString(w, "= "+move+"\r\n"); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}
	return nil
}

// isReply reports whether a line carries a GTP reply marker.
func isReply(line string) bool {
	return strings.HasPrefix(line, "=") || strings.HasPrefix(line, "?")
}
