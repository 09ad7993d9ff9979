package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestResetNeedsConfirmation(t *testing.T) {
	_, err := run(t, "reset")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestRoleRejectsUnknownRole(t *testing.T) {
	_, err := run(t, "role", "123", "king")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestRestockRejectsBadDelta(t *testing.T) {
	_, err := run(t, "restock", "123", "oreo", "lots")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a number")
}

func TestItemNeedsName(t *testing.T) {
	_, err := run(t, "item", "hobnob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name")
}
