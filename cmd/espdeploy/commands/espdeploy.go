// Copyright (C) 2026 Early Alpha Engineering. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"context"
	goflag "flag"

	"github.com/earlyalpha/espdeploy/cmd/espdeploy/directory"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.bug.st/serial"
)

type Info struct {
	Version string
	Date    string
}

func EspDeployCmd(info Info, isReleaseBuild bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "espdeploy",
		Short: "Build and flash firmware to your ESP32",
		Long: "espdeploy checks that your ESP32 is reachable, builds the project in the current\n" +
			"directory with PlatformIO or ESP-IDF, flashes it over the serial port and\n" +
			"optionally attaches a serial monitor.\n\n" +
			"Stages run in order and the first failure stops the run.",
		Version:      info.Version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}

			opts, err := parseOptions(cmd.Flags(), cfg)
			if err != nil {
				return err
			}

			toolchainName, err := cmd.Flags().GetString("toolchain")
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("toolchain") {
				toolchainName = cfg.GetString(directory.ToolchainCfgKey)
			}
			toolchain, err := GetToolchain(toolchainName, cfg)
			if err != nil {
				return err
			}

			assumeYes, err := cmd.Flags().GetBool("yes")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			seq := &Sequencer{
				Toolchain: toolchain,
				Executor:  newProcessExecutor(),
				Confirmer: newConfirmer(assumeYes, out),
				Ports:     serial.GetPortsList,
				Monitor: func(ctx context.Context, ep Endpoint) error {
					return RunMonitor(ctx, ep, false, out)
				},
				Out: out,
			}
			return seq.Run(cmd.Context(), opts)
		},
	}

	cmd.Flags().Bool("build-only", false, "only build, skip the upload")
	cmd.Flags().Bool("upload-only", false, "only upload, skip the build")
	cmd.Flags().Bool("monitor", false, "start the serial monitor after a successful run")
	cmd.Flags().Bool("clean", false, "clean the build output before building")
	cmd.Flags().StringP("port", "p", directory.DefaultPort(), "serial port of the device")
	cmd.Flags().Uint("baud", directory.DefaultBaud, "baud rate for serial monitoring")
	cmd.Flags().String("toolchain", "pio", "toolchain used to build and flash (pio or idf)")
	cmd.Flags().Bool("capture", false, "capture the tool output and only show it on failure")
	cmd.Flags().BoolP("yes", "y", false, "continue without asking when the connection check fails")

	cmd.PersistentFlags().AddGoFlagSet(goflag.CommandLine)

	cmd.AddCommand(
		MonitorCmd(),
		PortsCmd(),
		SetPortCmd(),
		ConfigCmd(),
		VersionCmd(info, isReleaseBuild),
	)
	return cmd
}

// parseOptions builds the run options from the flags, falling back to the
// user config for anything not given on the command line.
func parseOptions(flags *pflag.FlagSet, cfg *viper.Viper) (Options, error) {
	var opts Options
	var err error

	if opts.BuildOnly, err = flags.GetBool("build-only"); err != nil {
		return opts, err
	}
	if opts.UploadOnly, err = flags.GetBool("upload-only"); err != nil {
		return opts, err
	}
	if opts.Monitor, err = flags.GetBool("monitor"); err != nil {
		return opts, err
	}
	if opts.Clean, err = flags.GetBool("clean"); err != nil {
		return opts, err
	}
	if opts.Capture, err = flags.GetBool("capture"); err != nil {
		return opts, err
	}

	port, err := flags.GetString("port")
	if err != nil {
		return opts, err
	}
	if !flags.Changed("port") {
		port = ConfiguredPort(cfg)
	}

	baud, err := flags.GetUint("baud")
	if err != nil {
		return opts, err
	}
	if !flags.Changed("baud") && cfg != nil && cfg.IsSet(directory.BaudCfgKey) {
		baud = cfg.GetUint(directory.BaudCfgKey)
	}

	opts.Endpoint = Endpoint{Port: port, Baud: int(baud)}
	return opts, opts.Endpoint.Validate()
}
