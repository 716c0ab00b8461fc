package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/specialistvlad/assetgrid/internal/hcl_adapter"
	"github.com/specialistvlad/assetgrid/internal/processor"
	"github.com/specialistvlad/assetgrid/internal/scheduler"
	tu "github.com/specialistvlad/assetgrid/internal/testutil"
	"github.com/specialistvlad/assetgrid/modules/concat"
	"github.com/specialistvlad/assetgrid/modules/include"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp_Build(t *testing.T) {
	// --- Arrange ---
	f, err := setupAppTest(t, siteProject, siteSources, nil)
	require.NoError(t, err)
	tu.WriteTree(t, f.output, map[string]string{"stale.txt": "old"})

	// --- Act ---
	run, err := f.app.Build(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, run.Succeeded())
	assert.Equal(t, map[string]string{
		"index.html":         "<html><head><script src=\"/livereload.js\"></script></head><body>home</body></html>",
		"css/styles.min.css": "a{}\nb{}",
	}, tu.ReadTree(t, f.output), "clean must remove stale files and partials must not be emitted")
	assert.Contains(t, f.logs.String(), "Bootstrap build finished.")
}

func TestApp_Run_WatchModifyRebuildsOnlyTheBoundTask(t *testing.T) {
	// --- Arrange ---
	f, err := setupAppTest(t, siteProject, siteSources, nil)
	require.NoError(t, err)
	startApp(t, f.app)

	markupPath := filepath.Join(f.output, "index.html")
	before, err := os.Stat(markupPath)
	require.NoError(t, err)

	// --- Act ---
	tu.WriteTree(t, f.source, map[string]string{"css/b.css": "b{color:red}"})

	// --- Assert ---
	require.Eventually(t, func() bool {
		return f.app.Broadcaster().Broadcasts() == 1
	}, 5*time.Second, 10*time.Millisecond, "expected exactly one reload broadcast")

	assert.Equal(t, "a{}\nb{color:red}", tu.ReadTree(t, f.output)["css/styles.min.css"])
	after, err := os.Stat(markupPath)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime(), "markup output must not be rewritten")

	expected := `
# HELP assetgrid_task_runs_total Task executions by task and final status.
# TYPE assetgrid_task_runs_total counter
assetgrid_task_runs_total{status="succeeded",task="clean"} 1
assetgrid_task_runs_total{status="succeeded",task="markup"} 1
assetgrid_task_runs_total{status="succeeded",task="styles"} 2
# HELP assetgrid_watch_triggers_total Debounced watch rule firings, by rule.
# TYPE assetgrid_watch_triggers_total counter
assetgrid_watch_triggers_total{rule="styles"} 1
`
	require.NoError(t, testutil.GatherAndCompare(f.app.Metrics().Registry(), strings.NewReader(expected),
		"assetgrid_task_runs_total", "assetgrid_watch_triggers_total"))

	time.Sleep(4 * testDebounce)
	assert.EqualValues(t, 1, f.app.Broadcaster().Broadcasts(), "a single change must not broadcast twice")
}

func TestApp_Run_FailedRebuildDoesNotBroadcast(t *testing.T) {
	f, err := setupAppTest(t, siteProject, siteSources, nil)
	require.NoError(t, err)
	startApp(t, f.app)

	tu.WriteTree(t, f.source, map[string]string{"index.html": "<html>@@include('_missing.html')</html>"})

	require.Eventually(t, func() bool {
		return strings.Contains(f.logs.String(), "Rebuild failed.")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Zero(t, f.app.Broadcaster().Broadcasts())
	assert.Contains(t, tu.ReadTree(t, f.output)["index.html"], "home", "the previous output stays in place")
}

func TestApp_Run_ProcessorErrorInsideParallelAbortsStartup(t *testing.T) {
	// --- Arrange ---
	boom := errors.New("bad stylesheet")
	failing := &tu.SimpleModule{
		Name: concat.Name,
		Processor: processor.Func(func(context.Context, []processor.Input, processor.Options) ([]processor.Output, error) {
			return nil, &processor.InputError{Path: "css/b.css", Err: boom}
		}),
	}
	f, err := setupAppTest(t, siteProject, siteSources, nil, &include.Module{}, failing)
	require.NoError(t, err)

	// --- Act ---
	runErr := f.app.Run(context.Background())

	// --- Assert ---
	require.Error(t, runErr)
	assert.ErrorIs(t, runErr, boom)
	var perr *scheduler.ProcessorError
	require.ErrorAs(t, runErr, &perr)
	assert.Equal(t, "styles", perr.Task)
	assert.Equal(t, "css/b.css", perr.Input)

	assert.Contains(t, tu.ReadTree(t, f.output), "index.html", "the sibling task still completes")
	select {
	case <-f.app.Ready():
		t.Fatal("watchers and server must not start after a failed bootstrap build")
	default:
	}
}

func TestNewApp_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		project string
		mutate  func(*Config)
		msg     string
	}{
		{
			name:    "invalid settings",
			project: siteProject,
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			msg:     "invalid log format",
		},
		{
			name:    "output contains source",
			project: siteProject,
			mutate:  func(c *Config) { c.Output = filepath.Dir(c.Source) },
			msg:     "must not contain source",
		},
		{
			name:    "output inside source",
			project: siteProject,
			mutate:  func(c *Config) { c.Output = filepath.Join(c.Source, "dist") },
			msg:     "must not be inside source",
		},
		{
			name:    "output equals source",
			project: siteProject,
			mutate:  func(c *Config) { c.Output = c.Source + string(filepath.Separator) },
			msg:     "must differ from source",
		},
		{
			name:    "unparsable project",
			project: `task "x" {`,
			msg:     "failed to load pipeline",
		},
		{
			name:    "unknown processor",
			project: strings.Replace(siteProject, `processor = "concat"`, `processor = "sass"`, 1),
			msg:     `unknown processor: "sass"`,
		},
		{
			name:    "missing root pipeline",
			project: strings.Replace(siteProject, `pipeline "build"`, `pipeline "all"`, 1),
			msg:     "unknown task or pipeline",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := setupAppTest(t, tc.project, siteSources, tc.mutate)

			require.Error(t, err)
			assert.Nil(t, f.app)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestApp_ExampleSite(t *testing.T) {
	// --- Arrange ---
	site := filepath.Join("..", "..", "examples", "site")
	cfg, err := LoadFrom(filepath.Join(site, "assetgrid.yaml"))
	require.NoError(t, err)
	cfg.Source = filepath.Join(site, cfg.Source)
	cfg.Pipeline = filepath.Join(site, cfg.Pipeline)
	cfg.Output = t.TempDir()
	cfg.Server.Enabled = false

	a, err := NewApp(&tu.SafeBuffer{}, cfg, hcl_adapter.NewLoader())
	require.NoError(t, err)

	// --- Act ---
	run, err := a.Build(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	out := tu.ReadTree(t, cfg.Output)
	assert.ElementsMatch(t, []string{
		"about.html",
		"index.html",
		"images/icons/logo.svg",
		"scripts/script.min.js",
		"styles/styles.min.css",
	}, keys(out))
	assert.NotContains(t, out["index.html"], "@@include")
	assert.Contains(t, out["index.html"], "/livereload.js")
	assert.True(t, strings.HasPrefix(out["styles/styles.min.css"], "html{line-height:1.15}"), "selector order is kept")

	require.Len(t, run.Warnings(), 1, "the example ships without fonts")
	assert.Equal(t, "fonts", run.Warnings()[0].Task)
	assert.ErrorIs(t, run.Warnings()[0].Err, scheduler.ErrInputNotFound)
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
