package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lockverify/internal/lockgraph"
	"github.com/roach88/lockverify/internal/trace"
)

func TestDump_Text(t *testing.T) {
	dir := t.TempDir()
	path := writeTrace(t, dir, "ulocks.0",
		trace.Header{Time: 1756400000, Thread: 2, PID: 99},
		trace.Create{ID: lockgraph.LockID{Thr: 2, Instance: 0}, At: lockgraph.Site{File: "a.c", Line: 5}},
		trace.Order{
			Earlier: lockgraph.LockID{Thr: 2, Instance: 0},
			Later:   lockgraph.LockID{Thr: 2, Instance: 0},
			At:      lockgraph.Site{File: "a.c", Line: 9},
		})

	out := &bytes.Buffer{}
	cmd := NewDumpCommand(&RootOptions{Format: "text"})
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.Execute())

	s := out.String()
	assert.Contains(t, s, "trace of thread 2 from pid 99")
	assert.Contains(t, s, "create lock 2/0 at a.c:5")
	assert.Contains(t, s, "lock 2/0 held before 2/0 at a.c:9")
	assert.Contains(t, s, "2 records")
}

func TestDump_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeTrace(t, dir, "ulocks.0",
		trace.Header{Time: 1000, Thread: 0, PID: 7},
		trace.Create{ID: lockgraph.LockID{Thr: 0, Instance: 0}, At: lockgraph.Site{File: "a.c", Line: 5}})

	out := &bytes.Buffer{}
	cmd := NewDumpCommand(&RootOptions{Format: "json"})
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(7), data["pid"])
	events := data["events"].([]interface{})
	require.Len(t, events, 1)
	ev := events[0].(map[string]interface{})
	assert.Equal(t, "create", ev["type"])
	assert.Equal(t, "0/0", ev["lock"])
}

func TestDump_MissingFile(t *testing.T) {
	cmd := NewDumpCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDump_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	// Valid header, then garbage where a record should be.
	path := writeTrace(t, dir, "bad", trace.Header{Time: 1000, Thread: 0, PID: 7})
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte{0xff, 0xff, 0xff, 0x7f, 0x01})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	cmd := NewDumpCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})

	err = cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
