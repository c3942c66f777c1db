package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--short"})

	require.NoError(t, cmd.Execute())
	require.Equal(t, "dev", strings.TrimSpace(out.String()))
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	t.Setenv("ADMIN_LOG_FORMAT", "xml")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"serve"})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "log.format")
}
