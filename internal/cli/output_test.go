package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlpath/internal/loader"
	"github.com/roach88/sqlpath/internal/query"
	"github.com/roach88/sqlpath/internal/testutil"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf, TraceID: "trace-1"}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "trace-1", resp.TraceID)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("E101", "table name is required", map[string]string{"path": "tables[0]"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E101", resp.Error.Code)
	assert.Equal(t, "table name is required", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("3 tables"))
	assert.Equal(t, "3 tables\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error("E005", "schema file not found", nil))
	assert.Equal(t, "Error [E005]: schema file not found\n", buf.String())
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()

	id, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.NotEqual(t, a, b)
}

func TestNewFormatter_TraceIDOverride(t *testing.T) {
	cmd := &cobra.Command{}
	opts := &RootOptions{Format: "json", TraceIDs: testutil.NewSequenceTraceIDs("cli")}

	assert.Equal(t, "cli-0001", newFormatter(opts, cmd).TraceID)
	assert.Equal(t, "cli-0002", newFormatter(opts, cmd).TraceID)

	id, err := uuid.Parse(newFormatter(&RootOptions{}, cmd).TraceID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestFail_Codes(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		details bool
	}{
		{
			name:    "load error with path",
			err:     &loader.LoadError{Code: loader.ErrCodeTable, Path: "tables[1]", Message: "table \"A\" declared twice"},
			code:    "E101",
			details: true,
		},
		{
			name:    "wrapped join error",
			err:     fmt.Errorf("column B.x: %w", &query.JoinError{Code: query.ErrCodeNoJoinPath, From: "A", To: "B"}),
			code:    "NO_JOIN_PATH",
			details: true,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			code: "E001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}

			err := formatter.Fail(ExitFailure, "failed", tt.err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.ErrorIs(t, err, tt.err)

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.details, resp.Error.Details != nil)
		})
	}
}

func TestExitError(t *testing.T) {
	inner := errors.New("no such file")
	err := WrapExitError(ExitCommandError, "database not found", inner)

	assert.Equal(t, "database not found: no such file", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("other")))
	assert.Equal(t, "bad", NewExitError(ExitFailure, "bad").Error())
}
