package main

import (
	"bytes"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	up, down, closed bool
	version          uint
}

func (f *fakeMigrator) Up() error   { f.up = true; return nil }
func (f *fakeMigrator) Down() error { f.down = true; return nil }
func (f *fakeMigrator) Version() (uint, bool, error) {
	return f.version, false, nil
}
func (f *fakeMigrator) Close() error { f.closed = true; return nil }

func useFakeMigrator(t *testing.T) *fakeMigrator {
	t.Helper()
	fake := &fakeMigrator{version: 1}
	orig := newMigrator
	newMigrator = func(string) (migrator, error) { return fake, nil }
	t.Cleanup(func() { newMigrator = orig })
	return fake
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootHasSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := make([]string, 0)
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "migrate")
}

func TestMigrateUp(t *testing.T) {
	fake := useFakeMigrator(t)

	out, err := execute(t, "migrate", "up")
	require.NoError(t, err)
	assert.True(t, fake.up)
	assert.True(t, fake.closed)
	assert.Contains(t, out, "Migrations completed successfully")
}

func TestMigrateVersion(t *testing.T) {
	useFakeMigrator(t)

	out, err := execute(t, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version 1 (dirty: false)")
}

func TestMigrateDownRequiresConfirmation(t *testing.T) {
	fake := useFakeMigrator(t)

	_, err := execute(t, "migrate", "down")
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "CONFIRMATION_REQUIRED", oopsErr.Code())
	assert.False(t, fake.down)

	_, err = execute(t, "migrate", "down", "--yes")
	require.NoError(t, err)
	assert.True(t, fake.down)
}
