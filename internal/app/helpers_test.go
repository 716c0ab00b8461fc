package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/assetgrid/internal/hcl_adapter"
	"github.com/specialistvlad/assetgrid/internal/processor"
	"github.com/specialistvlad/assetgrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

const testDebounce = 50 * time.Millisecond

// siteProject mirrors a small static site: markup with partials, styles
// concatenated into one bundle, and a watch rule per asset class.
const siteProject = `
task "clean" {
  processor = "clean"
}

task "markup" {
  processor = "include"
  inputs    = ["*.html"]
  output    = "*.html"
}

task "styles" {
  processor = "concat"
  inputs    = ["css/*.css"]
  output    = "css/styles.min.css"
  options   = { name = "css/styles.min.css" }
}

pipeline "build" {
  series = ["clean", "assets"]
}

pipeline "assets" {
  parallel = ["markup", "styles"]
}

watch "markup" {
  pattern = "*.html"
  run     = "markup"
}

watch "styles" {
  pattern = "css/**/*.css"
  run     = "styles"
}
`

var siteSources = map[string]string{
	"index.html":   "<html>@@include('_header.html')<body>home</body></html>",
	"_header.html": "<head><script src=\"/livereload.js\"></script></head>",
	"css/a.css":    "a{}",
	"css/b.css":    "b{}",
}

type appFixture struct {
	app    *App
	logs   *testutil.SafeBuffer
	source string
	output string
}

// setupAppTest writes project and sources to temp dirs and builds an App
// with debug logging and the server disabled.
func setupAppTest(t *testing.T, project string, sources map[string]string, mutate func(*Config), modules ...processor.Module) (appFixture, error) {
	t.Helper()

	source, output := testutil.Roots(t)
	testutil.WriteTree(t, source, sources)
	projectFile := filepath.Join(t.TempDir(), "assetgrid.hcl")
	require.NoError(t, os.WriteFile(projectFile, []byte(project), 0o644))

	cfg := DefaultConfig()
	cfg.Source = source
	cfg.Output = output
	cfg.Pipeline = projectFile
	cfg.Debounce = testDebounce.String()
	cfg.Server.Enabled = false
	cfg.Log.Level = "debug"
	if mutate != nil {
		mutate(cfg)
	}

	logs := &testutil.SafeBuffer{}
	t.Cleanup(func() {
		if os.Getenv("ASSETGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	a, err := NewApp(logs, cfg, hcl_adapter.NewLoader(), modules...)
	return appFixture{app: a, logs: logs, source: source, output: output}, err
}

// startApp runs a in the background and waits until it is watching. The
// app is stopped when the test ends.
func startApp(t *testing.T, a *App) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case <-a.Ready():
	case err := <-done:
		cancel()
		t.Fatalf("app stopped before it was ready: %v", err)
	case <-time.After(10 * time.Second):
		cancel()
		t.Fatal("app did not become ready")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("app did not stop")
		}
	})
}
