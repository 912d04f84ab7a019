package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapu/reader-sim-go/internal/domain"
)

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"run", "serve", "personas", "ping", "tools", "news", "history"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestPersonasCommandFiltersByCategory(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"personas", "--category", "professional"})

	require.NoError(t, root.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Greater(t, len(lines), 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, out.String(), "professional")
	assert.NotContains(t, out.String(), "student ")
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run", "Why rice matters", "--format", "yaml"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestOnOff(t *testing.T) {
	assert.Equal(t, "unknown", onOff(nil))
	assert.Equal(t, "available", onOff(domain.Bool(true)))
	assert.Equal(t, "unavailable", onOff(domain.Bool(false)))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Search the web", firstLine("Search the web\nwith Bing"))
	assert.Equal(t, "plain", firstLine("plain"))
}
