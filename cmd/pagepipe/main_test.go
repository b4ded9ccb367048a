package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/pagepipe/internal/config"
)

func fixture(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><title>Fixture</title></head><body>
<h1>Hello</h1><a id="more" href="/more">More</a>
</body></html>`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestOpenDriverUnknown(t *testing.T) {
	_, _, err := openDriver(context.Background(), &config.Config{Driver: "lynx"})
	assert.ErrorContains(t, err, `unknown driver "lynx"`)
}

func TestInspectCommand(t *testing.T) {
	srv := fixture(t)

	out, err := execute(t, "inspect", srv.URL, "--driver", "html", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Fixture"`)

	_, err = execute(t, "inspect", srv.URL, "--driver", "html", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestRunCommand(t *testing.T) {
	srv := fixture(t)
	dir := t.TempDir()

	script := filepath.Join(dir, "hello.yaml")
	require.NoError(t, os.WriteFile(script, []byte(fmt.Sprintf(`name: hello
steps:
  - action: navigate
    url: %s
  - action: text
    selector: h1
    as: heading
`, srv.URL)), 0o644))

	report := filepath.Join(dir, "out", "report.yaml")
	_, err := execute(t, "run", script, "--driver", "html", "--out", report)
	require.NoError(t, err)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ok: true")
	assert.Contains(t, string(data), "heading: Hello")
}

func TestRunCommandFailure(t *testing.T) {
	srv := fixture(t)
	script := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(script, []byte(fmt.Sprintf(`steps:
  - action: navigate
    url: %s
  - action: click
    selector: "#missing"
`, srv.URL)), 0o644))

	_, err := execute(t, "run", script, "--driver", "html")
	assert.ErrorContains(t, err, "failed after 1/2 steps")
}

func TestRunCommandInvalidScript(t *testing.T) {
	script := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(script, []byte("steps:\n  - action: fly\n"), 0o644))

	_, err := execute(t, "run", script, "--driver", "html")
	assert.ErrorContains(t, err, "invalid script")
}
