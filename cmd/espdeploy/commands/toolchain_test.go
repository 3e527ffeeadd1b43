package commands

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/earlyalpha/espdeploy/cmd/espdeploy/directory"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envValue(env []string, key string) (string, bool) {
	for _, kv := range env {
		if strings.HasPrefix(kv, key+"=") {
			return strings.TrimPrefix(kv, key+"="), true
		}
	}
	return "", false
}

func Test_NewIDF(t *testing.T) {
	_, err := NewIDF(IDFConfig{})
	assert.Error(t, err)

	idf, err := NewIDF(IDFConfig{Path: "/opt/esp-idf"})
	require.NoError(t, err)
	assert.Equal(t, "esp32", idf.cfg.Target)
	assert.Equal(t, directory.Executable("python"), idf.cfg.Python)
	assert.False(t, idf.Permissive())
}

func Test_IDF_Env(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("absolute paths need a volume name on windows")
	}
	root := filepath.Join(string(filepath.Separator), "opt", "esp-idf")
	python := filepath.Join(string(filepath.Separator), "env", "idf5.4", "bin", "python")
	cmake := filepath.Join(string(filepath.Separator), "tools", "cmake")
	ninja := filepath.Join(string(filepath.Separator), "tools", "ninja")
	t.Setenv("PATH", "/usr/bin")

	idf, err := NewIDF(IDFConfig{Path: root, Python: python, Target: "esp32s3", Tools: []string{cmake, ninja}})
	require.NoError(t, err)
	env := idf.Env()

	v, ok := envValue(env, "IDF_PATH")
	assert.True(t, ok)
	assert.Equal(t, root, v)

	v, ok = envValue(env, "IDF_TARGET")
	assert.True(t, ok)
	assert.Equal(t, "esp32s3", v)

	v, ok = envValue(env, "IDF_PYTHON_ENV_PATH")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(string(filepath.Separator), "env", "idf5.4"), v)

	v, ok = envValue(env, "PATH")
	require.True(t, ok)
	assert.Equal(t, []string{
		filepath.Dir(python),
		cmake,
		ninja,
		filepath.Join(root, "tools"),
		"/usr/bin",
	}, filepath.SplitList(v))
}

func Test_IDF_EnvRelativePython(t *testing.T) {
	idf, err := NewIDF(IDFConfig{Path: "/opt/esp-idf"})
	require.NoError(t, err)
	_, ok := envValue(idf.Env(), "IDF_PYTHON_ENV_PATH")
	assert.False(t, ok)
}

func Test_IDF_Steps(t *testing.T) {
	idf, err := NewIDF(IDFConfig{Path: "/opt/esp-idf", Python: "python3"})
	require.NoError(t, err)
	idfPy := filepath.Join("/opt/esp-idf", "tools", "idf.py")
	ep := Endpoint{Port: "COM7", Baud: 115200}

	assert.Equal(t, []string{"python3", idfPy, "build"}, idf.BuildStep().Args)
	assert.Equal(t, []string{"python3", idfPy, "fullclean"}, idf.CleanStep().Args)
	assert.Equal(t, []string{"python3", idfPy, "-p", "COM7", "flash"}, idf.UploadStep(ep).Args)
	assert.Equal(t, []string{"python3", "-m", "esptool", "--port", "COM7", "chip_id"}, idf.CheckStep(ep).Args)
	assert.NotEmpty(t, idf.BuildStep().Env)

	assert.True(t, idf.Found(ep, Result{OK: true}))
	assert.False(t, idf.Found(ep, Result{ExitCode: 2}))
}

func Test_LoadIDFConfig(t *testing.T) {
	for _, key := range []string{directory.IDFPathEnv, directory.IDFPythonEnv, directory.IDFTargetEnv, directory.IDFToolsEnv} {
		t.Setenv(key, "")
	}

	cfg := viper.New()
	cfg.Set("idf", map[string]interface{}{
		"path":   "/stored/idf",
		"python": "/stored/python",
		"target": "esp32c3",
		"tools":  []string{"/stored/cmake"},
	})

	res, err := LoadIDFConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, IDFConfig{
		Path:   "/stored/idf",
		Python: "/stored/python",
		Target: "esp32c3",
		Tools:  []string{"/stored/cmake"},
	}, res)

	t.Setenv(directory.IDFPathEnv, "/env/idf")
	t.Setenv(directory.IDFToolsEnv, strings.Join([]string{"/env/a", "/env/b"}, string(os.PathListSeparator)))
	res, err = LoadIDFConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "/env/idf", res.Path)
	assert.Equal(t, "esp32c3", res.Target)
	assert.Equal(t, []string{"/env/a", "/env/b"}, res.Tools)
}

func Test_PlatformIO_Steps(t *testing.T) {
	pio := NewPlatformIO()
	exe := directory.Executable("pio")
	ep := Endpoint{Port: "/dev/ttyUSB1", Baud: 115200}

	assert.True(t, pio.Permissive())
	assert.Equal(t, []string{exe, "run"}, pio.BuildStep().Args)
	assert.Equal(t, []string{exe, "run", "--target", "clean"}, pio.CleanStep().Args)
	assert.Equal(t, []string{exe, "run", "--target", "upload", "--upload-port", "/dev/ttyUSB1"}, pio.UploadStep(ep).Args)
	assert.Equal(t, []string{exe, "device", "list"}, pio.CheckStep(ep).Args)
	assert.Empty(t, pio.BuildStep().Env)
}

func Test_PlatformIO_Found(t *testing.T) {
	listing := "/dev/ttyUSB0\n------------\nHardware ID: USB VID:PID=10C4:EA60\nDescription: CP2102\n\n/dev/ttyS0\n----------\n"
	pio := NewPlatformIO()

	tests := []struct {
		name  string
		port  string
		res   Result
		found bool
	}{
		{name: "listed", port: "/dev/ttyUSB0", res: Result{OK: true, Output: listing}, found: true},
		{name: "prefix only", port: "/dev/ttyUSB", res: Result{OK: true, Output: listing}},
		{name: "missing", port: "COM5", res: Result{OK: true, Output: listing}},
		{name: "tool failed", port: "/dev/ttyUSB0", res: Result{ExitCode: 1, Output: listing}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.found, pio.Found(Endpoint{Port: test.port, Baud: 115200}, test.res))
		})
	}
}

func Test_PlatformIO_CheckVersion(t *testing.T) {
	pio := NewPlatformIO()
	assert.NoError(t, pio.CheckVersion(Result{OK: true, Output: "PlatformIO Core, version 6.1.15\n"}))
	assert.Error(t, pio.CheckVersion(Result{OK: true, Output: "PlatformIO, version 5.2.5\n"}))
	assert.Error(t, pio.CheckVersion(Result{OK: true, Output: "garbage"}))
	assert.Error(t, pio.CheckVersion(Result{ExitCode: 127}))
}

func Test_GetToolchain(t *testing.T) {
	t.Setenv(directory.IDFPathEnv, "/env/idf")

	tc, err := GetToolchain("pio", viper.New())
	require.NoError(t, err)
	assert.Equal(t, "pio", tc.Name())

	tc, err = GetToolchain("IDF", viper.New())
	require.NoError(t, err)
	assert.Equal(t, "idf", tc.Name())

	_, err = GetToolchain("arduino", viper.New())
	assert.Error(t, err)
}
