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
	"strings"
	"testing"

	"github.com/AleutianAI/softstone/cmd/softstone/internal/analysis"
	"github.com/AleutianAI/softstone/cmd/softstone/internal/stream"
	"github.com/AleutianAI/softstone/pkg/logging"
)

// mockSession scripts engine behavior for dispatch-loop tests.
type mockSession struct {
	sent        []string // commands forwarded via Send
	passthrough []string // commands relayed via Passthrough
	genmoves    []string // colors passed to GenMove

	genmoveMove      string
	genmoveSelection *analysis.Selection
	genmoveErr       error
}

func (m *mockSession) Send(command string) error {
	m.sent = append(m.sent, command)
	return nil
}

func (m *mockSession) Passthrough(command string, w io.Writer) error {
	m.passthrough = append(m.passthrough, command)
	_, _ = io.WriteString(w, "= \n")
	return nil
}

func (m *mockSession) GenMove(color string, policy analysis.Policy, w io.Writer) (*analysis.Selection, error) {
	m.genmoves = append(m.genmoves, color)
	if m.genmoveErr != nil {
		return nil, m.genmoveErr
	}
	_, _ = io.WriteString(w, "= "+m.genmoveMove+"\r\n")
	return m.genmoveSelection, nil
}

func (m *mockSession) DrainOutput(w io.Writer) bool { return false }
func (m *mockSession) DrainDiagnostics() bool       { return false }

func newTestProxy(mock *mockSession, commands ...string) (*proxy, *strings.Builder) {
	input := stream.NewQueue()
	for _, c := range commands {
		input.Push(c)
	}
	input.Close() // controller hangs up after the scripted commands

	out := &strings.Builder{}
	return &proxy{
		session: mock,
		policy: analysis.Policy{
			TargetWinPercent: 40.0,
			MaxDropPercent:   100.0,
		},
		input: input,
		out:   out,
		log:   logging.Discard(),
	}, out
}

func TestRun_QuitForwardsAndExits(t *testing.T) {
	mock := &mockSession{}
	p, _ := newTestProxy(mock, "quit", "boardsize 19")

	if err := p.run(); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	if len(mock.sent) != 1 || mock.sent[0] != "quit" {
		t.Errorf("sent = %v, want [quit]", mock.sent)
	}
	// Nothing after quit may be dispatched.
	if len(mock.passthrough) != 0 {
		t.Errorf("passthrough = %v, want none after quit", mock.passthrough)
	}
}

func TestRun_NameAnsweredLocally(t *testing.T) {
	mock := &mockSession{}
	p, out := newTestProxy(mock, "name", "quit")

	if err := p.run(); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	if !strings.Contains(out.String(), "= Softstone\r\n\r\n") {
		t.Errorf("output %q missing local name reply", out.String())
	}
	if len(mock.passthrough) != 0 {
		t.Error("name must not reach the engine")
	}
}

func TestRun_VersionDescribesPolicy(t *testing.T) {
	mock := &mockSession{}
	p, out := newTestProxy(mock, "version", "quit")

	if err := p.run(); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	if !strings.Contains(out.String(), "40.0%") {
		t.Errorf("version reply %q should mention the target percentage", out.String())
	}
}

func TestRun_GenmoveDispatchesColor(t *testing.T) {
	mock := &mockSession{genmoveMove: "C3", genmoveSelection: &analysis.Selection{Move: "C3", Deviation: 1.5}}
	p, out := newTestProxy(mock, "genmove b", "quit")

	if err := p.run(); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	if len(mock.genmoves) != 1 || mock.genmoves[0] != "b" {
		t.Errorf("genmoves = %v, want [b]", mock.genmoves)
	}
	if !strings.Contains(out.String(), "= C3\r\n") {
		t.Errorf("output %q missing genmove reply", out.String())
	}
}

func TestRun_GenmoveErrorIsFatal(t *testing.T) {
	mock := &mockSession{genmoveErr: fmt.Errorf("no candidates survived")}
	p, _ := newTestProxy(mock, "genmove w", "quit")

	if err := p.run(); err == nil {
		t.Error("run() should surface a genmove failure")
	}
}

func TestRun_UnknownCommandsPassThrough(t *testing.T) {
	mock := &mockSession{}
	p, _ := newTestProxy(mock, "boardsize 19", "komi 7.5", "play w Q16", "quit")

	if err := p.run(); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	want := []string{"boardsize 19", "komi 7.5", "play w Q16"}
	if len(mock.passthrough) != len(want) {
		t.Fatalf("passthrough = %v, want %v", mock.passthrough, want)
	}
	for i, w := range want {
		if mock.passthrough[i] != w {
			t.Errorf("passthrough[%d] = %q, want %q", i, mock.passthrough[i], w)
		}
	}
}

func TestRun_MalformedGenmoveFallsBackToPassthrough(t *testing.T) {
	mock := &mockSession{}
	p, _ := newTestProxy(mock, "genmove ", "quit")

	if err := p.run(); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	if len(mock.genmoves) != 0 {
		t.Error("genmove without a color must not run the override choreography")
	}
	if len(mock.passthrough) != 1 {
		t.Errorf("passthrough = %v, want the malformed genmove", mock.passthrough)
	}
}

func TestRun_EmptyLinesIgnored(t *testing.T) {
	mock := &mockSession{}
	p, _ := newTestProxy(mock, "", "   ", "quit")

	if err := p.run(); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	if len(mock.passthrough) != 0 {
		t.Errorf("passthrough = %v, want empty lines dropped", mock.passthrough)
	}
}

func TestRun_ControllerHangupEndsLoop(t *testing.T) {
	mock := &mockSession{}
	p, _ := newTestProxy(mock) // no commands, queue already closed

	if err := p.run(); err != nil {
		t.Fatalf("run() error on controller hangup: %v", err)
	}
}

func TestVersionText_MentionsPassPolicy(t *testing.T) {
	withPass := versionText(analysis.Policy{TargetWinPercent: 50, MaxDropPercent: 10, PassTerminates: true})
	if !strings.Contains(withPass, "worse than passing") {
		t.Errorf("versionText with pass_terminates should mention passing: %q", withPass)
	}
	withoutPass := versionText(analysis.Policy{TargetWinPercent: 50, MaxDropPercent: 10})
	if strings.Contains(withoutPass, "worse than passing") {
		t.Error("versionText without pass_terminates should not mention passing")
	}
}
