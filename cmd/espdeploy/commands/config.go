// Copyright (C) 2026 Early Alpha Engineering. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"strconv"

	"github.com/earlyalpha/espdeploy/cmd/espdeploy/directory"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configure espdeploy",
		Long:  "Configure the espdeploy command line tool.",
	}

	cmd.AddCommand(
		ConfigShowCmd(),
		ConfigToolchainCmd(),
		ConfigBaudCmd(),
		ConfigIDFCmd(),
	)
	return cmd
}

func ConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "show",
		Short:        "Print the stored configuration",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", cfg.ConfigFileUsed())
			return yaml.NewEncoder(cmd.OutOrStdout()).Encode(cfg.AllSettings())
		},
	}
}

func ConfigToolchainCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "toolchain <pio|idf>",
		Short:        "Set the default toolchain",
		Args:         cobra.ExactArgs(1),
		ValidArgs:    directory.GetToolchains(),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}
			if err := setToolchain(cfg, args[0]); err != nil {
				return err
			}
			return directory.WriteConfig(cfg)
		},
	}
}

func setToolchain(cfg *viper.Viper, name string) error {
	for _, t := range directory.GetToolchains() {
		if t == name {
			cfg.Set(directory.ToolchainCfgKey, name)
			return nil
		}
	}
	return fmt.Errorf("unknown toolchain '%s'", name)
}

func ConfigBaudCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "baud <rate>",
		Short:        "Set the default baud rate used by the serial monitor",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			baud, err := strconv.Atoi(args[0])
			if err != nil || baud <= 0 {
				return fmt.Errorf("invalid baud rate '%s'", args[0])
			}
			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}
			cfg.Set(directory.BaudCfgKey, baud)
			return directory.WriteConfig(cfg)
		},
	}
}

func ConfigIDFCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "idf",
		Short: "Configure the ESP-IDF installation",
		Long: `Stores where the ESP-IDF framework and its tools are installed.

The IDF_PATH, IDF_TARGET, ESPDEPLOY_IDF_PYTHON and ESPDEPLOY_IDF_TOOLS
environment variables take precedence over the stored values.

Example:

  espdeploy config idf --path C:\Espressif\frameworks\esp-idf-v5.4.1 \
    --python C:\Users\me\.espressif\python_env\idf5.4_py3.12_env\Scripts\python.exe \
    --tool C:\Espressif\tools\cmake\3.30.2\bin --tool C:\Espressif\tools\ninja\1.12.1`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}

			idfCfg, err := storedIDFConfig(cfg)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("path") {
				if idfCfg.Path, err = flags.GetString("path"); err != nil {
					return err
				}
			}
			if flags.Changed("python") {
				if idfCfg.Python, err = flags.GetString("python"); err != nil {
					return err
				}
			}
			if flags.Changed("target") {
				if idfCfg.Target, err = flags.GetString("target"); err != nil {
					return err
				}
			}
			if flags.Changed("tool") {
				if idfCfg.Tools, err = flags.GetStringArray("tool"); err != nil {
					return err
				}
			}

			cfg.Set(directory.IDFCfgKey, map[string]interface{}{
				"path":   idfCfg.Path,
				"python": idfCfg.Python,
				"target": idfCfg.Target,
				"tools":  idfCfg.Tools,
			})
			return directory.WriteConfig(cfg)
		},
	}

	cmd.Flags().String("path", "", "root of the ESP-IDF framework")
	cmd.Flags().String("python", "", "python executable of the ESP-IDF environment")
	cmd.Flags().String("target", "esp32", "chip to build for")
	cmd.Flags().StringArray("tool", nil, "directory to prepend to PATH (cmake, ninja, compiler); repeatable")
	return cmd
}
