package commands

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/earlyalpha/espdeploy/cmd/espdeploy/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Setenv(directory.UserConfigPathEnv, filepath.Join(t.TempDir(), "config.yaml"))
	return executeWithConfig(t, args...)
}

func executeWithConfig(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := EspDeployCmd(Info{Version: "v1.2.3", Date: "2026-10-17"}, true)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func Test_EspDeployCmd_version(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "v1.2.3")

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "espdeploy version:\tv1.2.3\n")
	assert.Contains(t, out, "2026-10-17")
	assert.NotContains(t, out, "development")
}

func Test_EspDeployCmd_unknownToolchain(t *testing.T) {
	_, err := execute(t, "--toolchain", "arduino")
	assert.Error(t, err)
}

func Test_EspDeployCmd_idfWithoutPath(t *testing.T) {
	t.Setenv(directory.IDFPathEnv, "")
	_, err := execute(t, "--toolchain", "idf")
	assert.ErrorContains(t, err, "ESP-IDF path is not configured")
}

func Test_EspDeployCmd_rejectsArgs(t *testing.T) {
	_, err := execute(t, "flash")
	assert.Error(t, err)
}

func Test_ConfigCmd(t *testing.T) {
	t.Setenv(directory.UserConfigPathEnv, filepath.Join(t.TempDir(), "config.yaml"))
	for _, key := range []string{directory.IDFPathEnv, directory.IDFPythonEnv, directory.IDFTargetEnv, directory.IDFToolsEnv} {
		t.Setenv(key, "")
	}

	_, err := executeWithConfig(t, "config", "toolchain", "idf")
	require.NoError(t, err)
	_, err = executeWithConfig(t, "config", "toolchain", "arduino")
	assert.Error(t, err)

	_, err = executeWithConfig(t, "config", "baud", "921600")
	require.NoError(t, err)
	_, err = executeWithConfig(t, "config", "baud", "fast")
	assert.Error(t, err)

	_, err = executeWithConfig(t, "config", "idf", "--path", "/opt/esp-idf", "--tool", "/opt/cmake", "--tool", "/opt/ninja")
	require.NoError(t, err)
	_, err = executeWithConfig(t, "config", "idf", "--target", "esp32s3")
	require.NoError(t, err)

	cfg, err := directory.GetUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "idf", cfg.GetString(directory.ToolchainCfgKey))
	assert.Equal(t, 921600, cfg.GetInt(directory.BaudCfgKey))

	idfCfg, err := LoadIDFConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, IDFConfig{
		Path:   "/opt/esp-idf",
		Target: "esp32s3",
		Tools:  []string{"/opt/cmake", "/opt/ninja"},
	}, idfCfg)

	out, err := executeWithConfig(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "toolchain: idf")
}
