package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFiles_Defaults(t *testing.T) {
	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 5000, config.Server.Port)
	assert.Equal(t, "./cookies", config.Storage.SessionsDir)
	assert.Equal(t, "./logs", config.Storage.LogsDir)
	assert.Equal(t, "Pending E-kyc.csv", config.Data.SourceFile)
	assert.Equal(t, 15*time.Second, config.Browser.ElementTimeout.Duration())
	assert.Equal(t, 30*time.Minute, config.Login.MaxAge.Duration())
	assert.False(t, config.Browser.Headless)
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	first := writeConfig(t, "a.toml", `
[server]
port = 6000
host = "0.0.0.0"

[portal]
removal_remark = "first"
`)
	second := writeConfig(t, "b.toml", `
[server]
port = 7000

[browser]
headless = true
element_timeout = "5s"
launch_timeout = "1m30s"
step_delay = 0.5

[login]
max_age = "10m"

[websocket]
push_interval = "250ms"
`)

	config, err := LoadFromFiles(first, "", second)
	require.NoError(t, err)

	assert.Equal(t, 7000, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, "first", config.Portal.RemovalRemark)
	assert.True(t, config.Browser.Headless)
	assert.Equal(t, 5*time.Second, config.Browser.ElementTimeout.Duration())
	assert.Equal(t, 90*time.Second, config.Browser.LaunchTimeout.Duration())
	assert.Equal(t, 10*time.Minute, config.Login.MaxAge.Duration())
	assert.Equal(t, 250*time.Millisecond, config.WebSocket.PushInterval.Duration())
	assert.Equal(t, 0.5, config.Browser.StepDelay)
	// untouched sections keep defaults
	assert.Equal(t, "./cookies", config.Storage.SessionsDir)
}

func TestLoadFromFiles_Errors(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	bad := writeConfig(t, "bad.toml", "[server\nport = ")
	_, err = LoadFromFiles(bad)
	assert.Error(t, err)

	badDuration := writeConfig(t, "duration.toml", "[login]\nmax_age = \"half an hour\"\n")
	_, err = LoadFromFiles(badDuration)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "half an hour")
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("DUPREMOVER_SERVER_PORT", "8123")
	t.Setenv("DUPREMOVER_BROWSER_HEADLESS", "true")
	t.Setenv("DUPREMOVER_BROWSER_STEP_DELAY", "0")
	t.Setenv("DUPREMOVER_SESSIONS_DIR", "/tmp/sessions")
	t.Setenv("DUPREMOVER_LOG_OUTPUT", "stdout, ,file")

	file := writeConfig(t, "c.toml", "[server]\nport = 6000\n")
	config, err := LoadFromFiles(file)
	require.NoError(t, err)

	assert.Equal(t, 8123, config.Server.Port)
	assert.True(t, config.Browser.Headless)
	assert.Equal(t, 0.0, config.Browser.StepDelay)
	assert.Equal(t, "/tmp/sessions", config.Storage.SessionsDir)
	assert.Equal(t, []string{"stdout", "file"}, config.Logging.Output)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 5000, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)

	ApplyFlagOverrides(config, 9000, "127.0.0.1")
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
}

func TestScaledDelay(t *testing.T) {
	assert.Equal(t, 2*time.Second, BrowserConfig{StepDelay: 1}.ScaledDelay(2*time.Second))
	assert.Equal(t, time.Second, BrowserConfig{StepDelay: 0.5}.ScaledDelay(2*time.Second))
	assert.Equal(t, time.Duration(0), BrowserConfig{StepDelay: 0}.ScaledDelay(2*time.Second))
}

func TestIsProduction(t *testing.T) {
	assert.False(t, (&Config{Environment: "development"}).IsProduction())
	assert.True(t, (&Config{Environment: " Prod "}).IsProduction())
}
