package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitErrorMessage(t *testing.T) {
	plain := NewExitError(ExitFailure, "replay verification failed")
	assert.Equal(t, "replay verification failed", plain.Error())

	cause := errors.New("disk gone")
	wrapped := WrapExitError(ExitCommandError, "failed to open database", cause)
	assert.Equal(t, "failed to open database: disk gone", wrapped.Error())
	assert.Equal(t, cause, errors.Unwrap(wrapped))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad input")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain error")))

	// Wrapped ExitErrors still surface their code.
	inner := NewExitError(ExitCommandError, "bad input")
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("context: %w", inner)))
}

func TestWriteJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	err := writeJSON(buf, Response{Status: "ok", Data: map[string]int{"count": 3}})
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "ok", decoded.Status)

	errResp := Response{Status: "error", Error: &Error{Code: "replay_diverged", Message: "replays diverged"}}
	buf.Reset()
	require.NoError(t, writeJSON(buf, errResp))
	assert.Contains(t, buf.String(), "replay_diverged")
}
