// Copyright (C) 2026 Early Alpha Engineering. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/coreos/go-semver/semver"
	"github.com/earlyalpha/espdeploy/cmd/espdeploy/directory"
)

// Oldest PlatformIO Core known to handle 'run --upload-port'.
var minPlatformIOVersion = semver.New("6.0.0")

var pioVersionRe = regexp.MustCompile(`version\s+(\d+\.\d+\.\d+\S*)`)

// PlatformIO drives 'pio run'. PlatformIO sets up the compiler environment
// on its own.
type PlatformIO struct {
	executable string
}

func NewPlatformIO() *PlatformIO {
	return &PlatformIO{
		executable: directory.Executable("pio"),
	}
}

func (t *PlatformIO) Name() string { return "pio" }

func (t *PlatformIO) Permissive() bool { return true }

func (t *PlatformIO) step(description string, args ...string) Step {
	return Step{
		Description: description,
		Args:        append([]string{t.executable}, args...),
	}
}

func (t *PlatformIO) CheckStep(ep Endpoint) Step {
	return t.step("Checking ESP32 connection", "device", "list")
}

func (t *PlatformIO) Found(ep Endpoint, res Result) bool {
	if !res.OK {
		return false
	}
	for _, line := range strings.Split(res.Output, "\n") {
		if strings.TrimSpace(line) == ep.Port {
			return true
		}
	}
	return false
}

func (t *PlatformIO) CleanStep() Step {
	return t.step("Cleaning ESP32 project", "run", "--target", "clean")
}

func (t *PlatformIO) BuildStep() Step {
	return t.step("Building ESP32 project", "run")
}

func (t *PlatformIO) UploadStep(ep Endpoint) Step {
	return t.step(fmt.Sprintf("Flashing to %s", ep.Port), "run", "--target", "upload", "--upload-port", ep.Port)
}

func (t *PlatformIO) VersionStep() Step {
	return t.step("Checking PlatformIO version", "--version")
}

func (t *PlatformIO) CheckVersion(res Result) error {
	if !res.OK {
		return fmt.Errorf("'%s --version' exited with code %d", t.executable, res.ExitCode)
	}
	v, err := parsePlatformIOVersion(res.Output)
	if err != nil {
		return err
	}
	if v.LessThan(*minPlatformIOVersion) {
		return fmt.Errorf("PlatformIO %s is older than %s, uploads may fail", v, minPlatformIOVersion)
	}
	return nil
}

func parsePlatformIOVersion(output string) (*semver.Version, error) {
	m := pioVersionRe.FindStringSubmatch(output)
	if m == nil {
		return nil, fmt.Errorf("could not find a version in '%s'", strings.TrimSpace(output))
	}
	return semver.NewVersion(m[1])
}
