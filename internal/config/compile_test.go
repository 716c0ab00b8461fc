package config

import (
	"context"
	"testing"

	"github.com/specialistvlad/assetgrid/internal/pipeline"
	"github.com/specialistvlad/assetgrid/internal/processor"
	"github.com/specialistvlad/assetgrid/internal/task"
	"github.com/specialistvlad/assetgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func procs() *processor.Registry {
	r := processor.NewRegistry()
	(&testutil.SimpleModule{Name: "probe", Processor: &testutil.Probe{}}).Register(r)
	return r
}

func siteModel() *Model {
	return &Model{
		Tasks: []*TaskDef{
			{Name: "clean", Processor: "clean"},
			{Name: "markup", Processor: "probe", Inputs: []string{"*.html"}, Output: "index.html"},
			{
				Name: "styles", Processor: "probe", Inputs: []string{"css/*.css"}, Output: "css/",
				Options: cty.ObjectVal(map[string]cty.Value{"dir": cty.StringVal("css")}),
			},
		},
		Pipelines: []*PipelineDef{
			{Name: "build", Mode: ModeSeries, Members: []string{"clean", "assets"}},
			{Name: "assets", Mode: ModeParallel, Members: []string{"markup", "styles"}},
		},
		Watches: []*WatchDef{
			{Name: "styles", Pattern: "css/**/*.css", Run: "styles"},
			{Name: "everything", Pattern: "**/*", Run: "assets"},
		},
	}
}

func TestCompile_Site(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)

	// --- Act ---
	p, err := Compile(ctx, siteModel(), procs())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, DefaultRoot, p.RootName)
	assert.Equal(t, "series(clean, parallel(markup, styles))", p.Root.String())
	assert.Equal(t, 3, p.Tasks.Len())
	require.Len(t, p.Rules, 2)
	assert.Equal(t, "styles", p.Rules[0].Target.String())
	assert.Equal(t, "parallel(markup, styles)", p.Rules[1].Target.String())

	styles, ok := p.Tasks.Lookup("styles")
	require.True(t, ok)
	dir, err := styles.Options().String("dir", "")
	require.NoError(t, err)
	assert.Equal(t, "css", dir)

	clean, ok := p.Tasks.Lookup("clean")
	require.True(t, ok)
	assert.True(t, clean.IsClean())
}

func TestCompile_ExplicitRoot(t *testing.T) {
	m := siteModel()
	m.Root = "assets"

	p, err := Compile(context.Background(), m, procs())

	require.NoError(t, err)
	assert.Equal(t, "assets", p.RootName)
	assert.Equal(t, pipeline.KindParallel, p.Root.Kind())

	n, ok := p.Resolve("markup")
	require.True(t, ok)
	assert.Equal(t, pipeline.KindLeaf, n.Kind())
	_, ok = p.Resolve("missing")
	assert.False(t, ok)
}

func TestCompile_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(m *Model)
		target error
		msg    string
	}{
		{
			name:   "unknown processor",
			mutate: func(m *Model) { m.Tasks[1].Processor = "sass" },
			msg:    `unknown processor: "sass"`,
		},
		{
			name:   "duplicate task",
			mutate: func(m *Model) { m.Tasks = append(m.Tasks, &TaskDef{Name: "markup", Processor: "probe", Output: "other/"}) },
			target: task.ErrDuplicateTaskName,
		},
		{
			name: "output collision",
			mutate: func(m *Model) {
				m.Tasks = append(m.Tasks, &TaskDef{Name: "more", Processor: "probe", Output: "css/more.css"})
			},
			target: task.ErrOutputCollision,
		},
		{
			name:   "unknown member",
			mutate: func(m *Model) { m.Pipelines[1].Members = append(m.Pipelines[1].Members, "scripts") },
			target: ErrUnknownReference,
		},
		{
			name:   "unknown root",
			mutate: func(m *Model) { m.Root = "deploy" },
			target: ErrUnknownReference,
		},
		{
			name:   "unknown watch target",
			mutate: func(m *Model) { m.Watches[0].Run = "fonts" },
			target: ErrUnknownReference,
		},
		{
			name: "cycle",
			mutate: func(m *Model) {
				m.Pipelines[1].Members = append(m.Pipelines[1].Members, "loop")
				m.Pipelines = append(m.Pipelines, &PipelineDef{Name: "loop", Members: []string{"assets"}})
			},
			target: ErrReferenceCycle,
		},
		{
			name: "pipeline named like a task",
			mutate: func(m *Model) {
				m.Pipelines = append(m.Pipelines, &PipelineDef{Name: "markup", Members: []string{"styles"}})
			},
			target: ErrNameClash,
		},
		{
			name:   "clean inside parallel",
			mutate: func(m *Model) { m.Pipelines[1].Members = append(m.Pipelines[1].Members, "clean") },
			target: pipeline.ErrDuplicateLeaf,
		},
		{
			name: "clean in watch target",
			mutate: func(m *Model) {
				m.Watches[1].Run = "build"
			},
			target: pipeline.ErrCleanPlacement,
		},
		{
			name:   "clean with output",
			mutate: func(m *Model) { m.Tasks[0].Output = "build/" },
			msg:    "clean tasks take no inputs or output",
		},
		{
			name:   "empty pipeline",
			mutate: func(m *Model) { m.Pipelines[1].Members = nil },
			msg:    `pipeline "assets" has no members`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := siteModel()
			tc.mutate(m)

			p, err := Compile(context.Background(), m, procs())

			require.Error(t, err)
			assert.Nil(t, p)
			if tc.target != nil {
				assert.ErrorIs(t, err, tc.target)
			}
			if tc.msg != "" {
				assert.Contains(t, err.Error(), tc.msg)
			}
		})
	}
}

func TestCompile_CycleIsReported(t *testing.T) {
	m := &Model{
		Tasks: []*TaskDef{{Name: "markup", Processor: "probe", Inputs: []string{"*.html"}, Output: "index.html"}},
		Pipelines: []*PipelineDef{
			{Name: "build", Members: []string{"a"}},
			{Name: "a", Members: []string{"markup", "b"}},
			{Name: "b", Mode: ModeParallel, Members: []string{"a"}},
		},
	}

	_, err := Compile(context.Background(), m, procs())

	require.ErrorIs(t, err, ErrReferenceCycle)
	assert.Contains(t, err.Error(), "build -> a -> b -> a")
}
