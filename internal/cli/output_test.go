package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]int{"succeeded": 3})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(ErrCodeInput, "failed to read input", nil)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INPUT", resp.Error.Code)
	assert.Equal(t, "failed to read input", resp.Error.Message)
}

func TestOutputFormatter_JSONFailureCarriesData(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Failure(ErrCodeRunFailed, "1 of 2 item(s) failed", map[string]int{"failed": 1})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "RUN_FAILED", resp.Error.Code)
	assert.Equal(t, map[string]any{"failed": float64(1)}, resp.Data)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("CONFIG", "failed to load config", map[string]string{"path": "x.yaml"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [CONFIG]")
	assert.Contains(t, buf.String(), "failed to load config")
	assert.NotContains(t, buf.String(), "Details:")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error("CONFIG", "failed to load config", map[string]string{"path": "x.yaml"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_Text(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"text", "rendered\n"},
		{"json", ""},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: tt.format, Writer: buf}
			formatter.Text(func(w io.Writer) { _, _ = io.WriteString(w, "rendered\n") })
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestGetErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	assert.Same(t, errOut, (&OutputFormatter{Writer: out, ErrWriter: errOut}).GetErrWriter())
	assert.Same(t, out, (&OutputFormatter{Writer: out}).GetErrWriter())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"run failed", NewExitError(ExitFailure, "1 item failed"), ExitFailure},
		{"command error", WrapExitError(ExitCommandError, "bad input", errors.New("eof")), ExitCommandError},
		{"wrapped", errors.Join(errors.New("ctx"), NewExitError(ExitCommandError, "x")), ExitCommandError},
		{"plain", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError_Message(t *testing.T) {
	err := WrapExitError(ExitCommandError, "failed to read input", errors.New("no such file"))
	assert.Equal(t, "failed to read input: no such file", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "no such file")
}
