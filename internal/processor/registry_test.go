package processor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nop = Func(func(context.Context, []Input, Options) ([]Output, error) { return nil, nil })

func TestRegistry(t *testing.T) {
	// --- Arrange ---
	r := NewRegistry()

	// --- Act ---
	r.Register("include", nop)
	r.Register("concat", nop)

	// --- Assert ---
	assert.Equal(t, []string{"concat", "include"}, r.Names())
	p, err := r.Lookup("concat")
	require.NoError(t, err)
	assert.NotNil(t, p)

	_, err = r.Lookup("sass")
	assert.EqualError(t, err, `unknown processor: "sass"`)

	assert.Panics(t, func() { r.Register("concat", nop) })
}

func TestFailingInput(t *testing.T) {
	inner := errors.New("unterminated rule")
	err := fmt.Errorf("transform: %w", &InputError{Path: "css/a.css", Err: inner})

	assert.Equal(t, "css/a.css", FailingInput(err))
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "css/a.css: unterminated rule", (&InputError{Path: "css/a.css", Err: inner}).Error())
	assert.Empty(t, FailingInput(inner))
}
