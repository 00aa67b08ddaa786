package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/journal/internal/address"
)

func runAddress(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"address"}, args...))
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestAddressCommand(t *testing.T) {
	owner := uuid.New()
	d, err := address.NewDeriver(address.DefaultProgramID)
	require.NoError(t, err)

	got, err := runAddress(t, "--owner", owner.String(), "--title", "Notes", "--program-id", address.DefaultProgramID)
	require.NoError(t, err)
	assert.Equal(t, d.Derive("Notes", owner).String(), got)
}

func TestAddressCommand_Rejects(t *testing.T) {
	_, err := runAddress(t, "--owner", "nope", "--title", "Notes", "--program-id", "p")
	assert.Error(t, err)

	_, err = runAddress(t, "--owner", uuid.NewString(), "--title", strings.Repeat("t", 51), "--program-id", "p")
	assert.Error(t, err)

	_, err = runAddress(t, "--title", "Notes")
	assert.Error(t, err)
}
