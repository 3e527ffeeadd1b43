// Copyright (C) 2026 Early Alpha Engineering. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"strings"

	"github.com/earlyalpha/espdeploy/cmd/espdeploy/directory"
	"github.com/spf13/viper"
)

// Endpoint is the serial port the device is reached through.
type Endpoint struct {
	Port string
	Baud int
}

func (e Endpoint) Validate() error {
	if strings.TrimSpace(e.Port) == "" {
		return fmt.Errorf("no serial port given")
	}
	if e.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", e.Baud)
	}
	return nil
}

// Toolchain produces the external invocations for each stage.
type Toolchain interface {
	Name() string
	CheckStep(ep Endpoint) Step
	// Found interprets the result of the CheckStep.
	Found(ep Endpoint, res Result) bool
	CleanStep() Step
	BuildStep() Step
	UploadStep(ep Endpoint) Step
	// Permissive toolchains ask the operator before continuing past a
	// failed connection check instead of aborting.
	Permissive() bool
}

// VersionChecker is implemented by toolchains that can verify the version
// of the wrapped tool.
type VersionChecker interface {
	VersionStep() Step
	CheckVersion(res Result) error
}

func GetToolchain(name string, cfg *viper.Viper) (Toolchain, error) {
	switch strings.ToLower(name) {
	case "pio", "platformio":
		return NewPlatformIO(), nil
	case "idf", "esp-idf":
		idfCfg, err := LoadIDFConfig(cfg)
		if err != nil {
			return nil, err
		}
		return NewIDF(idfCfg)
	default:
		return nil, fmt.Errorf("unknown toolchain '%s', must be one of %s", name, strings.Join(directory.GetToolchains(), ", "))
	}
}
