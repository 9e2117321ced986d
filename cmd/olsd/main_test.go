package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, b *testutil.PipelineBuilder) string {
	t.Helper()
	cfg := b.Config()
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "olsd.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "olsd version "+Version)
}

func TestTypesCmd(t *testing.T) {
	out, err := execute(t, "types")
	require.NoError(t, err)
	for _, id := range []string{"counter_source", "json_filter", "websocket_output"} {
		assert.Contains(t, out, id)
	}
	assert.Contains(t, out, "source")
	assert.Contains(t, out, "output")
}

func TestPropsCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "json", args: []string{"props", "counter_source"}, want: []string{`"id": "counter_source"`, `"limit"`}},
		{name: "yaml", args: []string{"props", "counter_source", "--format", "yaml"}, want: []string{"id: counter_source", "kind: source"}},
		{name: "schema", args: []string{"props", "file_output", "--format", "schema"}, want: []string{`"$schema"`, `"path"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestPropsCmd_Errors(t *testing.T) {
	_, err := execute(t, "props", "no_such_type")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownType)

	_, err = execute(t, "props", "counter_source", "--format", "xml")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = execute(t, "props")
	assert.Error(t, err)
}

func TestValidateCmd(t *testing.T) {
	path := writeConfig(t, testutil.NewPipelineBuilder().
		Element("numbers", "counter_source", map[string]any{"limit": 3}).
		Element("out", "collect_sink", nil).
		Chain("numbers", "out"))

	out, err := execute(t, "validate", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid (2 elements, 1 links)")
}

func TestValidateCmd_Failures(t *testing.T) {
	path := writeConfig(t, testutil.NewPipelineBuilder().
		Element("numbers", "no_such_type", nil))

	out, err := execute(t, "validate", "-c", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidSetting)
	assert.Contains(t, out, "numbers.type")

	_, err = execute(t, "validate")
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}

func TestRunPipeline_EndsWithSources(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.log")
	cfg := testutil.NewPipelineBuilder().
		Element("numbers", "counter_source", map[string]any{"limit": 3}).
		Element("out", "file_output", map[string]any{"path": outPath, "format": "lines"}).
		Chain("numbers", "out").
		Config()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, runPipeline(ctx, cfg, logger))

	assert.Equal(t, []string{"1", "2", "3"}, testutil.ReadLines(t, outPath))
}

func TestRunPipeline_StopsOnCancel(t *testing.T) {
	cfg := testutil.NewPipelineBuilder().
		Element("numbers", "counter_source", map[string]any{"rate": 50}).
		Element("out", "collect_sink", map[string]any{"max_items": 10}).
		Chain("numbers", "out").
		Config()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	start := time.Now()
	require.NoError(t, runPipeline(ctx, cfg, logger))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunPipeline_InvalidElement(t *testing.T) {
	cfg := testutil.NewPipelineBuilder().
		Element("numbers", "no_such_type", nil).
		Config()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := runPipeline(context.Background(), cfg, logger)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, "warn", "json")
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, appName, rec["service"])
	assert.Equal(t, "value", rec["key"])

	assert.Equal(t, "debug", pick("debug", "info"))
	assert.Equal(t, "info", pick("", "info"))
}
