package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DevelopmentConfig(t *testing.T) {
	l, err := New(Config{Development: true, Level: "debug"})
	require.NoError(t, err)
	require.NotNil(t, l)
	defer l.Sync()
}

func TestNamed_ScopesLogger(t *testing.T) {
	root, err := New(Config{Development: true})
	require.NoError(t, err)
	defer root.Sync()

	child := Named(root, "schema")
	assert.NotNil(t, child)
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "not-a-level"})
	require.NoError(t, err)
	defer l.Sync()
}
