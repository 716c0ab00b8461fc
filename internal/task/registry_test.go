package task

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/assetgrid/internal/processor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nopProcessor = processor.Func(func(context.Context, []processor.Input, processor.Options) ([]processor.Output, error) {
	return nil, nil
})

func spec(name, output string, inputs ...string) Spec {
	return Spec{
		Name:          name,
		ProcessorName: "nop",
		Processor:     nopProcessor,
		Inputs:        inputs,
		Output:        output,
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	tk, err := r.Register(spec("styles", "styles/", "styles/**/*.css"))
	require.NoError(t, err)
	assert.Equal(t, "styles", tk.Name())
	assert.Equal(t, "nop", tk.ProcessorName())
	assert.Equal(t, []string{"styles/**/*.css"}, tk.Inputs())
	assert.Equal(t, TargetDir, tk.Output().Kind())
	assert.False(t, tk.IsClean())

	got, ok := r.Lookup("styles")
	require.True(t, ok)
	assert.Same(t, tk, got)
}

func TestRegistry_InputsAreCopied(t *testing.T) {
	r := NewRegistry()
	inputs := []string{"a.js", "b.js"}
	tk, err := r.Register(spec("scripts", "scripts/app.js", inputs...))
	require.NoError(t, err)

	inputs[0] = "mutated.js"
	got := tk.Inputs()
	got[1] = "mutated.js"
	assert.Equal(t, []string{"a.js", "b.js"}, tk.Inputs())
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register(spec("markup", "*.html", "*.html"))
	require.NoError(t, err)

	_, err = r.Register(spec("markup", "other/", "*.txt"))
	require.ErrorIs(t, err, ErrDuplicateTaskName)
	assert.Equal(t, 1, r.Len())

	_, err = r.RegisterClean("markup")
	require.ErrorIs(t, err, ErrDuplicateTaskName)
}

func TestRegistry_OutputCollision(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register(spec("scripts", "scripts/", "scripts/*.js"))
	require.NoError(t, err)

	_, err = r.Register(spec("bundle", "scripts/app.js", "vendor/*.js"))
	require.ErrorIs(t, err, ErrOutputCollision)

	var ce *CollisionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "bundle", ce.Task)
	assert.Equal(t, "scripts", ce.Existing)

	// Neither registration leaked the rejected task.
	_, ok := r.Lookup("bundle")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_OutputCollision_FileShadowsDirectory(t *testing.T) {
	tests := []struct {
		name          string
		first, second string
	}{
		{name: "file named like a directory", first: "styles/", second: "styles"},
		{name: "root pattern over a directory", first: "x/", second: "*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			_, err := r.Register(spec("dir", tt.first, "a/*"))
			require.NoError(t, err)

			_, err = r.Register(spec("file", tt.second, "b/*"))

			require.ErrorIs(t, err, ErrOutputCollision)
			assert.Equal(t, 1, r.Len())
		})
	}
}

func TestRegistry_CleanIsExemptFromCollisions(t *testing.T) {
	r := NewRegistry()
	clean, err := r.RegisterClean("clean")
	require.NoError(t, err)
	assert.True(t, clean.IsClean())
	assert.Nil(t, clean.Processor())

	_, err = r.Register(spec("everything", "./", "**/*"))
	require.NoError(t, err)

	names := []string{}
	for _, tk := range r.All() {
		names = append(names, tk.Name())
	}
	assert.Equal(t, []string{"clean", "everything"}, names)
}

func TestRegistry_RejectsInvalidSpecs(t *testing.T) {
	r := NewRegistry()

	_, err := r.Register(spec("", "x/"))
	assert.Error(t, err)

	_, err = r.Register(Spec{Name: "noproc", Output: "x/"})
	assert.Error(t, err)

	_, err = r.Register(spec("bad", "../x/"))
	assert.Error(t, err)

	_, err = r.Register(spec("empty", "x/", "!"))
	assert.Error(t, err)

	_, err = r.Register(spec("badglob", "x/", "src/[a"))
	assert.Error(t, err)

	assert.Equal(t, 0, r.Len())
}
