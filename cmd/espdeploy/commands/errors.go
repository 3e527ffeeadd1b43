// Copyright (C) 2026 Early Alpha Engineering. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"errors"
	"fmt"
)

var (
	ErrConnection    = errors.New("device not reachable")
	ErrBuild         = errors.New("build failed")
	ErrUpload        = errors.New("upload failed")
	ErrMonitorIO     = errors.New("serial monitor failed")
	ErrOperatorAbort = errors.New("aborted by operator")
)

// StageError is returned when an external tool of a stage failed. The
// monitor does not run a tool; its failures wrap ErrMonitorIO directly.
type StageError struct {
	Stage    Stage
	ExitCode int
	Output   string
	// Err is the reason the tool could not be started, if any.
	Err error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind(), e.Stage, e.Err)
	}
	if e.ExitCode == 0 {
		return fmt.Sprintf("%s: %s did not find the device", e.kind(), e.Stage)
	}
	return fmt.Sprintf("%s: %s exited with code %d", e.kind(), e.Stage, e.ExitCode)
}

func (e *StageError) kind() error {
	switch e.Stage {
	case StageConnection:
		return ErrConnection
	case StageUpload:
		return ErrUpload
	default:
		return ErrBuild
	}
}

func (e *StageError) Is(target error) bool {
	return target == e.kind()
}

func (e *StageError) Unwrap() error {
	return e.Err
}
