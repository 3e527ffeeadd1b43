// Copyright (C) 2026 Early Alpha Engineering. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package directory

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

const (
	// UserConfigPathEnv if set, will load the user config from that path.
	UserConfigPathEnv = "ESPDEPLOY_USER_CONFIG_PATH"

	// IDFPathEnv: root of the ESP-IDF framework checkout.
	IDFPathEnv = "IDF_PATH"
	// IDFTargetEnv: chip the ESP-IDF build targets.
	IDFTargetEnv = "IDF_TARGET"
	// IDFPythonEnv: python executable of the ESP-IDF virtual environment.
	IDFPythonEnv = "ESPDEPLOY_IDF_PYTHON"
	// IDFToolsEnv: extra directories (cmake, ninja, compiler) prepended to PATH.
	IDFToolsEnv = "ESPDEPLOY_IDF_TOOLS"
)

const (
	PortCfgKey      = "port"
	BaudCfgKey      = "baud"
	ToolchainCfgKey = "toolchain"
	IDFCfgKey       = "idf"
)

const DefaultBaud = 115200

func GetToolchains() []string {
	return []string{
		"pio",
		"idf",
	}
}

// DefaultPort is the port used when neither the flags nor the config name one.
func DefaultPort() string {
	switch runtime.GOOS {
	case "windows":
		return "COM5"
	case "darwin":
		return "/dev/cu.usbserial-0001"
	default:
		return "/dev/ttyUSB0"
	}
}

func GetUserConfigPath() (string, error) {
	if path, ok := os.LookupEnv(UserConfigPathEnv); ok {
		return path, nil
	}

	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homedir, ".config", "espdeploy", "config.yaml"), nil
}

func GetUserConfig() (*viper.Viper, error) {
	path, err := GetUserConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config path: %w", err)
	}

	cfg := viper.New()
	cfg.SetConfigType("yaml")
	cfg.SetConfigFile(path)
	cfg.SetDefault(BaudCfgKey, DefaultBaud)
	cfg.SetDefault(ToolchainCfgKey, "pio")
	if _, err := os.Stat(path); err == nil {
		if err := cfg.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read user config: %w", err)
		}
	}
	return cfg, nil
}

func WriteConfig(cfg *viper.Viper) error {
	file := cfg.ConfigFileUsed()
	dir := filepath.Dir(file)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	tmpFile := filepath.Join(filepath.Dir(file), ".config.tmp.yaml")
	if err := cfg.WriteConfigAs(tmpFile); err != nil {
		return err
	}
	defer os.Remove(tmpFile)

	return os.Rename(tmpFile, file)
}

func Executable(str string) string {
	if runtime.GOOS == "windows" {
		return str + ".exe"
	}
	return str
}
