// Copyright (C) 2026 Early Alpha Engineering. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/earlyalpha/espdeploy/cmd/espdeploy/commands"
)

var (
	version = "v1.0.0"
)

var buildDate = "unknown"
var buildMode = "development"

func main() {
	// glog logs to files by default.
	flag.Set("logtostderr", "true")
	flag.CommandLine.Parse(nil)

	isReleaseBuild := buildMode == "release"

	info := commands.Info{
		Date:    buildDate,
		Version: version,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := commands.EspDeployCmd(info, isReleaseBuild)
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
