package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "application.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "kestrel", cfg.Application.Name)
	assert.Equal(t, ModeProd, cfg.Application.Mode)
	assert.Empty(t, cfg.Application.ModulesBasePackage)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "UTC", cfg.Scheduler.Timezone)
	assert.Equal(t, 128, cfg.Convention.CacheSize)
	assert.Equal(t, StageProduction, cfg.Stage())
	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddr())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
application:
  name: hello
  mode: dev
  modules_base_package: com.example.hello
server:
  port: 9090
  shutdown_timeout: 3s
custom:
  greeting: hi
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "hello", cfg.Application.Name)
	assert.Equal(t, "com.example.hello", cfg.Application.ModulesBasePackage)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, StageDevelopment, cfg.Stage())
	assert.Equal(t, "com.example.hello", cfg.GetString(KeyModulesBasePackage))
	assert.Equal(t, "hi", cfg.GetString("custom.greeting"))
	assert.True(t, cfg.IsSet("custom.greeting"))
	assert.False(t, cfg.IsSet("custom.missing"))
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("KESTREL_SERVER_PORT", "7070")
	t.Setenv("KESTREL_APPLICATION_MODULES_BASE_PACKAGE", "envapp")

	cfg, err := Load(writeConfig(t, "application:\n  name: envtest\n"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "envapp", cfg.Application.ModulesBasePackage)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "kestrel", cfg.Application.Name)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{"valid", "application:\n  name: ok\n", false},
		{"bad mode", "application:\n  mode: staging\n", true},
		{"bad base package", "application:\n  modules_base_package: 'com..bad'\n", true},
		{"bad log level", "logging:\n  level: verbose\n", true},
		{"bad port", "server:\n  port: 70000\n", true},
		{"metrics path without slash", "metrics:\n  path: metrics\n", true},
		{"metrics enabled without path", "metrics:\n  enabled: true\n  path: ''\n", true},
		{"metrics disabled without path", "metrics:\n  enabled: false\n  path: ''\n", false},
		{"zero cache", "convention:\n  cache_size: 0\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set(KeyModulesBasePackage, "hello"))
	assert.Equal(t, "hello", cfg.Application.ModulesBasePackage)
	assert.Equal(t, "hello", cfg.GetString(KeyModulesBasePackage))

	assert.Error(t, cfg.Set(KeyModulesBasePackage, "not valid!"))
	assert.Equal(t, "hello", cfg.Application.ModulesBasePackage, "failed Set leaves config untouched")

	var zero Config
	require.NoError(t, zero.Set("server.enabled", false))
	assert.False(t, zero.Server.Enabled)
	assert.Equal(t, "kestrel", zero.Application.Name)
}

func TestValidNamespace(t *testing.T) {
	assert.True(t, ValidNamespace("hello"))
	assert.True(t, ValidNamespace("com.example.app_1"))
	assert.False(t, ValidNamespace(""))
	assert.False(t, ValidNamespace("com..example"))
	assert.False(t, ValidNamespace("com/example"))
}
