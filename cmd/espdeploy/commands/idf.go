// Copyright (C) 2026 Early Alpha Engineering. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/earlyalpha/espdeploy/cmd/espdeploy/directory"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type IDFConfig struct {
	Path   string   `mapstructure:"path" yaml:"path" json:"path"`
	Python string   `mapstructure:"python" yaml:"python" json:"python"`
	Target string   `mapstructure:"target" yaml:"target" json:"target"`
	Tools  []string `mapstructure:"tools" yaml:"tools" json:"tools"`
}

// LoadIDFConfig reads the 'idf' section of the user config. The environment
// takes precedence over the stored values.
func LoadIDFConfig(cfg *viper.Viper) (IDFConfig, error) {
	res, err := storedIDFConfig(cfg)
	if err != nil {
		return res, err
	}

	if v, ok := os.LookupEnv(directory.IDFPathEnv); ok && v != "" {
		res.Path = v
	}
	if v, ok := os.LookupEnv(directory.IDFPythonEnv); ok && v != "" {
		res.Python = v
	}
	if v, ok := os.LookupEnv(directory.IDFTargetEnv); ok && v != "" {
		res.Target = v
	}
	if v, ok := os.LookupEnv(directory.IDFToolsEnv); ok && v != "" {
		res.Tools = filepath.SplitList(v)
	}
	return res, nil
}

func storedIDFConfig(cfg *viper.Viper) (IDFConfig, error) {
	var res IDFConfig
	if cfg == nil || !cfg.IsSet(directory.IDFCfgKey) {
		return res, nil
	}
	if err := mapstructure.Decode(cfg.GetStringMap(directory.IDFCfgKey), &res); err != nil {
		return res, fmt.Errorf("invalid '%s' section in config: %w", directory.IDFCfgKey, err)
	}
	return res, nil
}

// IDF drives the ESP-IDF build system through idf.py. It assembles the
// environment idf.py expects itself.
type IDF struct {
	cfg IDFConfig
}

func NewIDF(cfg IDFConfig) (*IDF, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("the ESP-IDF path is not configured.\nSet %s or use 'espdeploy config idf --path <dir>'", directory.IDFPathEnv)
	}
	if cfg.Python == "" {
		cfg.Python = directory.Executable("python")
	}
	if cfg.Target == "" {
		cfg.Target = "esp32"
	}
	return &IDF{cfg: cfg}, nil
}

func (t *IDF) Name() string { return "idf" }

func (t *IDF) Permissive() bool { return false }

func (t *IDF) idfPy() string {
	return filepath.Join(t.cfg.Path, "tools", "idf.py")
}

// Env returns the variables idf.py needs: the framework root, the python
// virtual environment, the target chip and a PATH that finds the python
// environment, cmake, ninja and the cross compiler first.
func (t *IDF) Env() []string {
	env := []string{
		"IDF_PATH=" + t.cfg.Path,
		"IDF_TARGET=" + t.cfg.Target,
	}

	var paths []string
	if filepath.IsAbs(t.cfg.Python) {
		pythonDir := filepath.Dir(t.cfg.Python)
		env = append(env, "IDF_PYTHON_ENV_PATH="+filepath.Dir(pythonDir))
		paths = append(paths, pythonDir)
	}
	paths = append(paths, t.cfg.Tools...)
	paths = append(paths, filepath.Join(t.cfg.Path, "tools"))
	if existing := os.Getenv("PATH"); existing != "" {
		paths = append(paths, existing)
	}
	env = append(env, "PATH="+strings.Join(paths, string(os.PathListSeparator)))
	return env
}

func (t *IDF) step(description string, args ...string) Step {
	return Step{
		Description: description,
		Args:        append([]string{t.cfg.Python, t.idfPy()}, args...),
		Env:         t.Env(),
	}
}

func (t *IDF) CheckStep(ep Endpoint) Step {
	return Step{
		Description: "Checking ESP32 connection",
		Args:        []string{t.cfg.Python, "-m", "esptool", "--port", ep.Port, "chip_id"},
		Env:         t.Env(),
	}
}

func (t *IDF) Found(ep Endpoint, res Result) bool {
	return res.OK
}

func (t *IDF) CleanStep() Step {
	return t.step("Cleaning ESP32 project", "fullclean")
}

func (t *IDF) BuildStep() Step {
	return t.step("Building ESP32 project", "build")
}

func (t *IDF) UploadStep(ep Endpoint) Step {
	return t.step(fmt.Sprintf("Flashing to %s", ep.Port), "-p", ep.Port, "flash")
}
