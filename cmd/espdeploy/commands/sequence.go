// Copyright (C) 2026 Early Alpha Engineering. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/golang/glog"
)

type Stage int

const (
	StageConnection Stage = iota
	StageClean
	StageBuild
	StageUpload
	StageMonitor
)

func (s Stage) String() string {
	switch s {
	case StageConnection:
		return "connection check"
	case StageClean:
		return "clean"
	case StageBuild:
		return "build"
	case StageUpload:
		return "upload"
	case StageMonitor:
		return "monitor"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Options are fixed once the flags are parsed and shared by all stages.
type Options struct {
	Endpoint   Endpoint
	BuildOnly  bool
	UploadOnly bool
	Monitor    bool
	Clean      bool
	// Capture buffers the tool output and only shows it on failure.
	Capture bool
}

// Plan returns the stages a run with the given options goes through.
// BuildOnly wins when both selectors are set.
func Plan(opts Options) []Stage {
	stages := []Stage{StageConnection}
	if opts.Clean {
		stages = append(stages, StageClean)
	}
	switch {
	case opts.BuildOnly:
		stages = append(stages, StageBuild)
	case opts.UploadOnly:
		stages = append(stages, StageUpload)
	default:
		stages = append(stages, StageBuild, StageUpload)
	}
	if opts.Monitor {
		stages = append(stages, StageMonitor)
	}
	return stages
}

// Sequencer runs the stages of a deployment in order. The first failing
// stage ends the run.
type Sequencer struct {
	Toolchain Toolchain
	Executor  Executor
	Confirmer Confirmer
	// Ports lists the serial ports of the system for diagnostics.
	Ports   func() ([]string, error)
	Monitor func(ctx context.Context, ep Endpoint) error
	Out     io.Writer
}

func (s *Sequencer) Run(ctx context.Context, opts Options) error {
	if err := opts.Endpoint.Validate(); err != nil {
		return err
	}

	fmt.Fprintln(s.Out, "🚀 ESP32 Build and Deploy Script")
	fmt.Fprintln(s.Out, strings.Repeat("=", 40))
	s.checkVersion(ctx)

	for _, stage := range Plan(opts) {
		glog.V(1).Infof("stage %s", stage)
		var err error
		switch stage {
		case StageConnection:
			err = s.connect(ctx, opts.Endpoint)
		case StageClean:
			err = s.clean(ctx, opts)
		case StageBuild:
			err = s.build(ctx, opts)
		case StageUpload:
			err = s.upload(ctx, opts)
		case StageMonitor:
			s.summary(opts)
			return s.Monitor(ctx, opts.Endpoint)
		}
		if err != nil {
			return err
		}
	}
	s.summary(opts)
	return nil
}

func (s *Sequencer) checkVersion(ctx context.Context) {
	vc, ok := s.Toolchain.(VersionChecker)
	if !ok {
		return
	}
	res, err := s.Executor.Execute(ctx, vc.VersionStep())
	if err != nil {
		// Reported by the connection check.
		glog.V(1).Infof("version check: %v", err)
		return
	}
	if err := vc.CheckVersion(res); err != nil {
		fmt.Fprintf(s.Out, "⚠️  %v\n", err)
	}
}

func (s *Sequencer) connect(ctx context.Context, ep Endpoint) error {
	res, err := CheckConnection(ctx, s.Executor, s.Toolchain, ep, s.Out)
	if err == nil {
		return nil
	}
	fmt.Fprintf(s.Out, "❌ Cannot connect to ESP32 on %s\n", ep.Port)
	s.printAvailablePorts(ep)

	if !s.Toolchain.Permissive() {
		return err
	}
	ok, cerr := s.Confirmer.Confirm("Continue anyway")
	if cerr != nil {
		return cerr
	}
	if !ok {
		return fmt.Errorf("%w after failed %s: %v", ErrOperatorAbort, StageConnection, err)
	}
	glog.V(1).Infof("continuing after failed connection check (exit %d)", res.ExitCode)
	return nil
}

func (s *Sequencer) printAvailablePorts(ep Endpoint) {
	if s.Ports == nil {
		return
	}
	ports, err := s.Ports()
	if err != nil {
		fmt.Fprintf(s.Out, "Could not list serial ports: %v\n", err)
		return
	}
	reportPorts(s.Out, ep.Port, ports)
}

func (s *Sequencer) clean(ctx context.Context, opts Options) error {
	step := s.Toolchain.CleanStep()
	step.Stream = !opts.Capture
	fmt.Fprintln(s.Out, "🧹 Cleaning ESP32 project...")
	if _, err := s.runStage(ctx, StageClean, step); err != nil {
		fmt.Fprintln(s.Out, "❌ Clean failed.")
		return err
	}
	fmt.Fprintln(s.Out, "✅ Clean successful!")
	return nil
}

func (s *Sequencer) build(ctx context.Context, opts Options) error {
	step := s.Toolchain.BuildStep()
	step.Stream = !opts.Capture
	fmt.Fprintln(s.Out, "🏗️  Building ESP32 project...")
	fmt.Fprintf(s.Out, "Command: %s\n", step)
	if _, err := s.runStage(ctx, StageBuild, step); err != nil {
		var stageErr *StageError
		if errors.As(err, &stageErr) && stageErr.Err == nil {
			fmt.Fprintf(s.Out, "❌ Build failed with exit code: %d\n", stageErr.ExitCode)
		}
		fmt.Fprintln(s.Out, "❌ Build failed. Please check your code.")
		return err
	}
	fmt.Fprintln(s.Out, "✅ Build successful!")
	return nil
}

func (s *Sequencer) upload(ctx context.Context, opts Options) error {
	step := s.Toolchain.UploadStep(opts.Endpoint)
	step.Stream = !opts.Capture
	fmt.Fprintf(s.Out, "📱 Flashing to %s...\n", opts.Endpoint.Port)
	if _, err := s.runStage(ctx, StageUpload, step); err != nil {
		fmt.Fprintln(s.Out, "❌ Flash failed. Please check connection.")
		return err
	}
	fmt.Fprintln(s.Out, "✅ Flash successful!")
	return nil
}

// runStage runs step and turns a failure into a StageError. Captured output
// is only shown when the tool failed.
func (s *Sequencer) runStage(ctx context.Context, stage Stage, step Step) (Result, error) {
	res, err := s.Executor.Execute(ctx, step)
	if err != nil {
		fmt.Fprintf(s.Out, "❌ %s could not be started: %v\n", step.Description, err)
		return res, &StageError{Stage: stage, ExitCode: res.ExitCode, Err: err}
	}
	if res.OK {
		return res, nil
	}
	if !step.Stream && res.Output != "" {
		fmt.Fprintf(s.Out, "Error: %s\n", strings.TrimRight(res.Output, "\n"))
	}
	return res, &StageError{Stage: stage, ExitCode: res.ExitCode, Output: res.Output}
}

func (s *Sequencer) summary(opts Options) {
	switch {
	case opts.BuildOnly:
		fmt.Fprintln(s.Out, "\n🎉 SUCCESS! Build complete (upload skipped).")
	case opts.UploadOnly:
		fmt.Fprintln(s.Out, "\n🎉 SUCCESS! Upload complete (build skipped).")
	default:
		fmt.Fprintln(s.Out, "\n🎉 SUCCESS! ESP32 programmed successfully!")
	}
	if !opts.Monitor && !opts.BuildOnly {
		fmt.Fprintln(s.Out, "💡 Run 'espdeploy monitor' to see the output")
	}
}

// CheckConnection asks the toolchain whether the device answers on ep.
// The returned error wraps ErrConnection.
func CheckConnection(ctx context.Context, exec Executor, tc Toolchain, ep Endpoint, out io.Writer) (Result, error) {
	step := tc.CheckStep(ep)
	fmt.Fprintf(out, "🔧 %s...\n", step.Description)

	res, err := exec.Execute(ctx, step)
	if err != nil {
		fmt.Fprintf(out, "❌ %s failed!\n", step.Description)
		return res, &StageError{Stage: StageConnection, ExitCode: res.ExitCode, Err: err}
	}
	if !tc.Found(ep, res) {
		fmt.Fprintf(out, "❌ %s failed!\n", step.Description)
		if !res.OK && res.Output != "" {
			fmt.Fprintf(out, "Error: %s\n", strings.TrimRight(res.Output, "\n"))
		}
		return res, &StageError{Stage: StageConnection, ExitCode: res.ExitCode, Output: res.Output}
	}
	fmt.Fprintf(out, "✅ %s successful!\n", step.Description)
	return res, nil
}
