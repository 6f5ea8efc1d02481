package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"kestrel/bootstrap"
	"kestrel/container"
	"kestrel/convention"
	"kestrel/router"
)

const testBase = "cmdtest"

func init() {
	bootstrap.MustRegisterRoutes(convention.Default, testBase, func(container.Resolver) (router.Routes, error) {
		return router.RoutesFunc(func(r *router.Router) error {
			r.GET("/ping").With(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}).Named("ping")
			r.POST("/items/{id}").With(func(w http.ResponseWriter, _ *http.Request) {}).Named("item")
			return nil
		}), nil
	})
}

// execute runs the root command in an empty working directory so no
// application.yaml on disk leaks into the test.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	root := NewRootCmd("kestrel", "")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// executeStdio runs the root command against the process stdout and stderr,
// the way the binary does, and returns what each received.
func executeStdio(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Chdir(t.TempDir())

	outR, outW, pipeErr := os.Pipe()
	require.NoError(t, pipeErr)
	errR, errW, pipeErr := os.Pipe()
	require.NoError(t, pipeErr)

	origOut, origErr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = outW, errW
	defer func() { os.Stdout, os.Stderr = origOut, origErr }()

	readAll := func(r *os.File) <-chan string {
		ch := make(chan string, 1)
		go func() {
			data, _ := io.ReadAll(r)
			ch <- string(data)
		}()
		return ch
	}
	outCh, errCh := readAll(outR), readAll(errR)

	root := NewRootCmd("kestrel", "")
	root.SetArgs(args)
	err = root.Execute()

	require.NoError(t, outW.Close())
	require.NoError(t, errW.Close())
	return <-outCh, <-errCh, err
}

func TestRootCommandStructure(t *testing.T) {
	root := NewRootCmd("kestrel", "hello")

	assert.Equal(t, "kestrel", root.Use)
	for _, name := range []string{"serve", "check", "modules", "routes"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	for _, flag := range []string{"config", "base-package", "no-color", "quiet"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing --%s", flag)
	}
	assert.Equal(t, "hello", root.PersistentFlags().Lookup("base-package").DefValue)

	routes, _, err := root.Find([]string{"routes"})
	require.NoError(t, err)
	output := routes.Flags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "o", output.Shorthand)
	assert.Equal(t, "text", output.DefValue)
}

func TestModulesCommand(t *testing.T) {
	out, err := execute(t, "modules", "--no-color", "--base-package", testBase)
	require.NoError(t, err)

	assert.Contains(t, out, "Composition order")
	assert.Contains(t, out, "✓ cmdtest.conf.Routes")
	assert.Contains(t, out, "- cmdtest.conf.Module (not registered)")
	assert.Contains(t, out, "5. dispatch.default")
}

func TestModulesCommand_Quiet(t *testing.T) {
	out, err := execute(t, "modules", "--quiet", "--base-package", testBase)
	require.NoError(t, err)

	assert.Equal(t, "lifecycle\nscheduler\napp.configuration\nweb.context\ndispatch.default\n", out)
}

func TestModulesCommand_InvalidBasePackage(t *testing.T) {
	_, err := execute(t, "modules", "--base-package", "not/valid")
	assert.ErrorContains(t, err, "invalid --base-package")
}

func TestRoutesCommand(t *testing.T) {
	tests := []struct {
		name   string
		format string
		check  func(t *testing.T, out string)
	}{
		{
			name:   "text",
			format: "text",
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "METHOD")
				assert.Contains(t, out, "/ping")
				assert.Contains(t, out, "/items/{id}")
			},
		},
		{
			name:   "json",
			format: "json",
			check: func(t *testing.T, out string) {
				var routes []router.RouteInfo
				require.NoError(t, json.Unmarshal([]byte(out), &routes))
				assert.Equal(t, []router.RouteInfo{
					{Method: http.MethodGet, Path: "/ping", Name: "ping"},
					{Method: http.MethodPost, Path: "/items/{id}", Name: "item"},
				}, routes)
			},
		},
		{
			name:   "yaml",
			format: "yaml",
			check: func(t *testing.T, out string) {
				var routes []router.RouteInfo
				require.NoError(t, yaml.Unmarshal([]byte(out), &routes))
				require.Len(t, routes, 2)
				assert.Equal(t, "ping", routes[0].Name)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "routes", "--quiet", "--base-package", testBase, "-o", tt.format)
			require.NoError(t, err)
			tt.check(t, out)
		})
	}
}

func TestRoutesCommand_UnsupportedFormat(t *testing.T) {
	_, err := execute(t, "routes", "-o", "xml")
	assert.ErrorContains(t, err, `unsupported output format "xml"`)
}

func TestRoutesCommand_NoRoutes(t *testing.T) {
	out, err := execute(t, "routes", "--no-color", "--base-package", "cmdtest.empty")
	require.NoError(t, err)
	assert.Contains(t, out, "No routes registered")
}

func TestCheckCommand(t *testing.T) {
	out, err := execute(t, "check", "--quiet", "--base-package", testBase)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Boot check passed")
	assert.NotContains(t, out, "Container:")
}

func TestCheckCommand_Summary(t *testing.T) {
	out, err := execute(t, "check", "--no-color", "--base-package", "cmdtest.empty")
	require.NoError(t, err)
	assert.Contains(t, out, "Container:")
	assert.Contains(t, out, "Routes:     none (no cmdtest.empty.conf.Routes)")
}

func TestCheckCommand_MissingConfigFile(t *testing.T) {
	_, err := execute(t, "check", "--quiet", "--config", "does-not-exist.yaml")
	assert.ErrorContains(t, err, "failed to load config")
}

func TestRoutesCommand_StdoutIsParseable(t *testing.T) {
	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			stdout, stderr, err := executeStdio(t, "routes", "--base-package", testBase, "-o", format)
			require.NoError(t, err)

			var routes []router.RouteInfo
			if format == "json" {
				require.NoError(t, json.Unmarshal([]byte(stdout), &routes), "stdout: %s", stdout)
			} else {
				require.NoError(t, yaml.Unmarshal([]byte(stdout), &routes), "stdout: %s", stdout)
			}
			assert.Len(t, routes, 2)
			assert.Contains(t, stderr, "Container started", "logs belong on stderr")
		})
	}
}

func TestCheckCommand_QuietSilencesLogs(t *testing.T) {
	stdout, stderr, err := executeStdio(t, "check", "--quiet", "--base-package", testBase)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 1, "stdout: %s", stdout)
	assert.Contains(t, lines[0], "✓ Boot check passed")
	assert.NotContains(t, stderr, "INFO")
}
