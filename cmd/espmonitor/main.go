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

func main() {
	flag.Set("logtostderr", "true")
	flag.CommandLine.Parse(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := commands.MonitorCmd()
	cmd.Use = "espmonitor"
	cmd.Long = "Print the serial output of an ESP32 line by line until interrupted with Ctrl+C."
	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
