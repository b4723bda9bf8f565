package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/gfs/internal/cli/output"
)

// writeTestConfig writes a config with a badger "default" mount and a
// SQLite "archive" mount, so state survives between command runs.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`logging:
  level: ERROR
mounts:
  - name: default
    type: badger
    options:
      path: %s
  - name: archive
    type: relational
    read_only: false
    options:
      type: sqlite
      sqlite:
        path: %s
`, filepath.Join(dir, "badger"), filepath.Join(dir, "archive.db"))
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0600))
	return path
}

func run(t *testing.T, configPath, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", configPath, "--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, configPath, stdin string, args ...string) string {
	t.Helper()
	out, err := run(t, configPath, stdin, args...)
	require.NoError(t, err, out)
	return out
}

func TestSplitTarget(t *testing.T) {
	tests := []struct {
		arg, mount, path string
	}{
		{"/a/b", "", "/a/b"},
		{"docs:/a", "docs", "/a"},
		{"docs:", "docs", ""},
		{"a.b-c:x", "a.b-c", "x"},
		{"/odd:name", "", "/odd:name"},
		{"relative", "", "relative"},
	}
	for _, tt := range tests {
		mount, path := splitTarget(tt.arg)
		assert.Equal(t, tt.mount, mount, tt.arg)
		assert.Equal(t, tt.path, path, tt.arg)
	}
}

func TestParseMode(t *testing.T) {
	m, err := parseMode("0640")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), m)

	_, err = parseMode("9")
	assert.Error(t, err)
	_, err = parseMode("1777")
	assert.Error(t, err)
}

func TestPutCatStat(t *testing.T) {
	cfg := writeTestConfig(t)

	out := mustRun(t, cfg, "hello world", "put", "-", "/docs/hello.txt", "--mode", "0600")
	assert.Contains(t, out, "Wrote 11 bytes to default:/docs/hello.txt")

	assert.Equal(t, "hello world", mustRun(t, cfg, "", "cat", "/docs/hello.txt"))

	out = mustRun(t, cfg, "", "stat", "/docs/hello.txt", "-o", "json")
	var row output.EntryRow
	require.NoError(t, json.Unmarshal([]byte(out), &row))
	assert.Equal(t, "/docs/hello.txt", row.Path)
	assert.Equal(t, int64(11), row.Size)
	assert.Equal(t, "-rw-------", row.Mode)
	assert.Equal(t, "text/plain; charset=utf-8", row.ContentType)

	out = mustRun(t, cfg, "", "stat", "/docs/hello.txt")
	assert.Contains(t, out, "Mount")
	assert.Contains(t, out, "default")

	_, err := run(t, cfg, "", "cat", "/missing")
	assert.Error(t, err)
}

func TestPutFromLocalFile(t *testing.T) {
	cfg := writeTestConfig(t)
	local := filepath.Join(t.TempDir(), "script.sh")
	require.NoError(t, os.WriteFile(local, []byte("#!/bin/sh\necho hi\n"), 0o750))

	mustRun(t, cfg, "", "put", local, "archive:/bin/script.sh", "--content-type", "text/x-shellscript")

	out := mustRun(t, cfg, "", "stat", "archive:/bin/script.sh", "-o", "json")
	var row output.EntryRow
	require.NoError(t, json.Unmarshal([]byte(out), &row))
	assert.Equal(t, "-rwxr-x---", row.Mode)
	assert.Equal(t, "text/x-shellscript", row.ContentType)
}

func TestAppendAndChmod(t *testing.T) {
	cfg := writeTestConfig(t)

	mustRun(t, cfg, "one\n", "append", "/log.txt")
	out := mustRun(t, cfg, "two\n", "append", "/log.txt")
	assert.Contains(t, out, "default:/log.txt is now 8 bytes")
	mustRun(t, cfg, "O", "append", "/log.txt", "--offset", "0")

	assert.Equal(t, "One\ntwo\n", mustRun(t, cfg, "", "cat", "/log.txt"))

	mustRun(t, cfg, "", "chmod", "755", "/log.txt")
	out = mustRun(t, cfg, "", "stat", "/log.txt", "-o", "yaml")
	assert.Contains(t, out, "-rwxr-xr-x")

	_, err := run(t, cfg, "", "chmod", "755", "/nope")
	assert.Error(t, err)
	_, err = run(t, cfg, "", "chmod", "rwx", "/log.txt")
	assert.Error(t, err)
}

func TestLsAndFind(t *testing.T) {
	cfg := writeTestConfig(t)
	for _, p := range []string{"/src/main.go", "/src/util/str.go", "/README.md"} {
		mustRun(t, cfg, "x", "put", "-", p)
	}

	out := mustRun(t, cfg, "", "ls", "-o", "json")
	var rows []output.EntryRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	names := []string{rows[0].Name, rows[1].Name}
	assert.ElementsMatch(t, []string{"README.md", "src/"}, names)

	out = mustRun(t, cfg, "", "ls", "-R", "/src", "-o", "json")
	rows = nil
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	var recursive []string
	for _, r := range rows {
		recursive = append(recursive, r.Name)
	}
	assert.Equal(t, []string{"main.go", "util/", "util/str.go"}, recursive)

	out = mustRun(t, cfg, "", "ls", "-l", "/src")
	assert.Contains(t, out, "main.go")
	assert.Contains(t, out, "d---------")

	// ls on an entry lists the entry.
	out = mustRun(t, cfg, "", "ls", "/README.md")
	assert.Contains(t, out, "README.md")

	out = mustRun(t, cfg, "", "find", "**/*.go", "-o", "json")
	rows = nil
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	var found []string
	for _, r := range rows {
		found = append(found, r.Path)
	}
	assert.Equal(t, []string{"/src/main.go", "/src/util/str.go"}, found)

	out = mustRun(t, cfg, "", "find", "archive:**", "-o", "json")
	assert.JSONEq(t, `[]`, out)
}

func TestMvAndRm(t *testing.T) {
	cfg := writeTestConfig(t)
	mustRun(t, cfg, "a", "put", "-", "/a.txt")
	mustRun(t, cfg, "b", "put", "-", "/dir/b.txt")
	mustRun(t, cfg, "c", "put", "-", "/dir/sub/c.txt")

	mustRun(t, cfg, "", "mv", "/a.txt", "/moved/a.txt")
	assert.Equal(t, "a", mustRun(t, cfg, "", "cat", "/moved/a.txt"))

	// Across mounts the entry is copied and the source removed.
	mustRun(t, cfg, "", "mv", "/moved/a.txt", "archive:/a.txt")
	assert.Equal(t, "a", mustRun(t, cfg, "", "cat", "archive:/a.txt"))
	_, err := run(t, cfg, "", "cat", "/moved/a.txt")
	assert.Error(t, err)

	out := mustRun(t, cfg, "", "rm", "-rf", "/dir")
	assert.Contains(t, out, "Removed 2 entries")
	assert.JSONEq(t, `[]`, mustRun(t, cfg, "", "ls", "/dir", "-o", "json"))

	_, err = run(t, cfg, "", "rm", "-f", "/missing")
	assert.NoError(t, err)
}

func TestUnknownMount(t *testing.T) {
	cfg := writeTestConfig(t)
	_, err := run(t, cfg, "", "ls", "nope:/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mount "nope"`)

	_, err = run(t, cfg, "", "ls", "--mount", "nope")
	assert.Error(t, err)
}

func TestInitAndConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gfs", "config.yaml")

	out := mustRun(t, path, "", "init")
	assert.Contains(t, out, "Configuration file created at: "+path)

	_, err := run(t, path, "", "init")
	assert.Error(t, err)
	mustRun(t, path, "", "init", "--force")

	out = mustRun(t, path, "", "config", "validate")
	assert.Contains(t, out, "Validation: OK")
	assert.Contains(t, out, "scratch")
	assert.Contains(t, out, "in-memory")

	out = mustRun(t, path, "", "config", "show", "-o", "json")
	var shown map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Contains(t, shown, "Mounts")

	out = mustRun(t, path, "", "config", "schema")
	assert.Contains(t, out, "gfs Configuration")
}

func TestVersion(t *testing.T) {
	out := mustRun(t, "", "", "version")
	assert.Contains(t, out, "gfs dev")
}
