package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmalloy/augur/internal/record"
	"github.com/tmalloy/augur/internal/store"
)

func TestReplayMissingDatabaseFlag(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReplayEmptyDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	st.Close()

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})

	err = cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Replays agree")
}

func TestReplaySeededDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	seedDatabase(t, dbPath)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Replayed 4 event(s)")
	assert.Contains(t, output, "Replays agree")
}

func TestReplayJSON(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	seedDatabase(t, dbPath)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})

	err := cmd.Execute()
	require.NoError(t, err)

	var response struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.True(t, response.Data.Deterministic)
	assert.Equal(t, int64(4), response.Data.EventCount)
}

func TestReplayNonExistentDatabase(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", "/nonexistent/path/test.db"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open database")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayHelpText(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "--db")
	assert.Contains(t, output, "fold")
}

func TestEnvelopesEqual(t *testing.T) {
	a := []record.EventEnvelope{
		{EventID: "e1", Type: record.EventPredictionIssued, Position: 1},
		{EventID: "e2", Type: record.EventHalted, Position: 2},
	}
	b := []record.EventEnvelope{
		{EventID: "e1", Type: record.EventPredictionIssued, Position: 1},
		{EventID: "e2", Type: record.EventHalted, Position: 2},
	}
	assert.True(t, envelopesEqual(a, b))

	short := a[:1]
	assert.False(t, envelopesEqual(a, short))

	swapped := []record.EventEnvelope{
		{EventID: "e1", Type: record.EventPredictionIssued, Position: 1},
		{EventID: "e3", Type: record.EventHalted, Position: 2},
	}
	assert.False(t, envelopesEqual(a, swapped))
}
