// Copyright (C) 2026 Early Alpha Engineering. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/golang/glog"
)

// Step describes a single invocation of an external tool.
type Step struct {
	Description string
	Args        []string
	// Env holds KEY=VALUE pairs that override the inherited environment.
	Env []string
	Dir string
	// Stream forwards the output of the tool live. Otherwise it is captured
	// and returned in the Result.
	Stream bool
}

func (s Step) String() string {
	quoted := make([]string, len(s.Args))
	for i, a := range s.Args {
		if strings.ContainsAny(a, " \t") {
			a = `"` + a + `"`
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}

// Result of running a Step. ExitCode is -1 if the tool never started.
type Result struct {
	OK       bool
	Output   string
	ExitCode int
}

// Executor runs steps. The returned error is only set when the tool could
// not be started at all; a nonzero exit is reported through the Result.
type Executor interface {
	Execute(ctx context.Context, step Step) (Result, error)
}

type processExecutor struct {
	stdout io.Writer
	stderr io.Writer
}

func newProcessExecutor() *processExecutor {
	return &processExecutor{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

func (e *processExecutor) Execute(ctx context.Context, step Step) (Result, error) {
	if len(step.Args) == 0 {
		return Result{ExitCode: -1}, fmt.Errorf("empty command for '%s'", step.Description)
	}

	glog.V(1).Infof("exec %s (dir=%q, env=%v)", step, step.Dir, step.Env)
	cmd := exec.CommandContext(ctx, step.Args[0], step.Args[1:]...)
	cmd.Dir = step.Dir
	if len(step.Env) > 0 {
		cmd.Env = append(os.Environ(), step.Env...)
	}

	var captured bytes.Buffer
	if step.Stream {
		cmd.Stdin = os.Stdin
		cmd.Stdout = e.stdout
		cmd.Stderr = e.stderr
	} else {
		cmd.Stdout = &captured
		cmd.Stderr = &captured
	}

	err := cmd.Run()
	res := Result{Output: captured.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.OK = true
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
		return res, err
	}
	glog.V(1).Infof("exit %d: %s", res.ExitCode, step)
	return res, nil
}
