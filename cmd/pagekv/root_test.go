package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	for _, kind := range []string{"btree", "hash"} {
		t.Run(kind, func(t *testing.T) {
			db := filepath.Join(t.TempDir(), "cli.db")
			base := []string{"--db", db, "--kind", kind, "--page-size", "512", "--cache", "16"}
			cmd := func(args ...string) []string { return append(append([]string{}, args...), base...) }

			_, err := run(t, cmd("get", "a")...)
			require.Error(t, err, "file does not exist without --create")

			_, err = run(t, cmd("put", "b", "2", "--create")...)
			require.NoError(t, err)
			_, err = run(t, cmd("put", "a", "1")...)
			require.NoError(t, err)

			out, err := run(t, cmd("get", "a")...)
			require.NoError(t, err)
			assert.Equal(t, "1\n", out)

			out, err = run(t, cmd("dump")...)
			require.NoError(t, err)
			assert.Contains(t, out, "\"a\"\t\"1\"\n")
			assert.Contains(t, out, "\"b\"\t\"2\"\n")

			out, err = run(t, cmd("dump", "-n", "1")...)
			require.NoError(t, err)
			assert.Equal(t, 1, bytes.Count([]byte(out), []byte("\n")))

			_, err = run(t, cmd("del", "a")...)
			require.NoError(t, err)
			_, err = run(t, cmd("get", "a")...)
			assert.ErrorContains(t, err, "not found")

			out, err = run(t, cmd("stats")...)
			require.NoError(t, err)
			assert.Contains(t, out, "kind:        "+kind)
			assert.Contains(t, out, "keys:        1\n")
			assert.Contains(t, out, "free blocks: ")
		})
	}
}

func TestCommands_InvalidFlags(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	_, err := run(t, "put", "k", "v", "--db", db, "--create", "--page-size", "1000")
	assert.Error(t, err)

	_, err = run(t, "get", "k")
	assert.Error(t, err, "a path is required")
}

func TestLayoutFlags_ApplyToNewFiles(t *testing.T) {
	flags := newRootCmd().PersistentFlags()
	for _, name := range []string{"kind", "page-size", "cache", "min-items"} {
		f := flags.Lookup(name)
		require.NotNil(t, f, name)
		assert.Contains(t, f.Usage, "for a new file", name)
	}
}

func TestCacheFlag_IgnoredForExistingFile(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	_, err := run(t, "put", "k", "v", "--db", db, "--create", "--cache", "32")
	require.NoError(t, err)

	out, err := run(t, "stats", "--db", db, "--cache", "64")
	require.NoError(t, err)
	assert.Contains(t, out, "cache:       ")
	assert.Contains(t, out, "/32 pages\n")
}
