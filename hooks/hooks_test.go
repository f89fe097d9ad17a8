package hooks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHook(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
}

func TestRunner_Exists(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, Commit, "exit 0")
	r := NewRunner(dir, dir)

	assert.True(t, r.Exists(Commit))
	assert.False(t, r.Exists(Rollback))
}

func TestRunner_IsExecutable(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, Commit, "exit 0")
	require.NoError(t, os.WriteFile(filepath.Join(dir, Rollback), []byte("not executable"), 0o644))
	r := NewRunner(dir, dir)

	assert.True(t, r.IsExecutable(Commit))
	assert.False(t, r.IsExecutable(Rollback))
}

func TestRunner_AnyChangeHookPresentAndCompleteness(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(dir, dir)
	assert.False(t, r.AnyChangeHookPresent())

	writeHook(t, dir, Commit, "exit 0")
	assert.True(t, r.AnyChangeHookPresent())
	assert.False(t, r.AllPerRevisionHooksValid())

	writeHook(t, dir, Rollback, "exit 0")
	writeHook(t, dir, VerifyCommit, "exit 0")
	writeHook(t, dir, VerifyRollback, "exit 0")
	writeHook(t, dir, SetChangeID, "exit 0")
	assert.True(t, r.AllPerRevisionHooksValid())
}

func TestRunner_RunExitStatus(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, Commit, "exit 3")
	r := NewRunner(dir, dir)

	status, err := r.Run(context.Background(), Commit)
	require.NoError(t, err)
	assert.Equal(t, 3, status)
}

func TestRunner_CaptureTrimsWhitespace(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, GetChangeID, `printf 'rev-42  \n'`)
	r := NewRunner(dir, dir)

	out, status, err := r.Capture(context.Background(), GetChangeID)
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Equal(t, "rev-42", out)
}

func TestRunner_CaptureDoesNotRedactSecretLookingOutput(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, GetChangeID, `printf 'sk-ant-REDACTED\n'`)
	r := NewRunner(dir, dir)

	out, _, err := r.Capture(context.Background(), GetChangeID)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-REDACTED", out)
}

func TestRunner_SetChangeIDReceivesEmptyArgument(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, SetChangeID, `[ "$1" = "" ] && exit 0 || exit 1`)
	r := NewRunner(dir, dir)

	status, err := r.Run(context.Background(), SetChangeID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, status)
}
