package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/stimkit/stimkit/internal/logger"
	v1 "github.com/stimkit/stimkit/pkg/stimkit/v1"
	stimerrors "github.com/stimkit/stimkit/pkg/stimkit/v1/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quickProtocol = `
schemaVersion: "1.0.0"
name: quick
sequences:
  - name: cue
    renderer: console
    times: 0.01
    stimuli: [left, right]
    pre_stimulus_marker: "#"
  - name: blank
    renderer: "null"
    times: [0.005]
    repeat: 2
`

func writeProtocol(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "protocol.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestValidateCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := execute([]string{"validate", "--protocol", writeProtocol(t, quickProtocol)}, &stdout, &stderr)
	assert.Equal(t, ExitSuccess, code, stderr.String())
	assert.Contains(t, stderr.String(), "Protocol validation successful")

	stderr.Reset()
	bad := strings.Replace(quickProtocol, `renderer: "null"`, "renderer: projector", 1)
	code = execute([]string{"validate", "--protocol", writeProtocol(t, bad)}, &stdout, &stderr)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr.String(), "unknown renderer 'projector'")
}

func TestMissingProtocolFlagIsUsageError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, ExitUsageError, execute([]string{"run"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "protocol")
	assert.Equal(t, ExitUsageError, execute([]string{"run", "--protocol", "x.yaml", "--log-format", "xml"}, &stdout, &stderr))
}

func TestRunCommand_RecordsPresentations(t *testing.T) {
	var stdout, stderr bytes.Buffer
	record := filepath.Join(t.TempDir(), "onsets.csv")
	code := execute([]string{
		"run",
		"--protocol", writeProtocol(t, quickProtocol),
		"--log-level", "error",
		"--record", record,
		"--plot",
	}, &stdout, &stderr)
	require.Equal(t, ExitSuccess, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "#\n")
	assert.Contains(t, out, " left\n")
	assert.Contains(t, out, " right\n")
	assert.Contains(t, stderr.String(), "Session summary")
	assert.Contains(t, stderr.String(), "onset error (ms)")

	data, err := os.ReadFile(record)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 5)
}

func TestRunCommand_MissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := execute([]string{"run", "--protocol", filepath.Join(t.TempDir(), "none.yaml")}, &stdout, &stderr)
	assert.Equal(t, ExitFailure, code)
}

func TestVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, ExitSuccess, execute([]string{"version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "stimkit version dev")

	stdout.Reset()
	require.Equal(t, ExitSuccess, execute([]string{"--version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "stimkit version dev")
}

func TestDetermineExitCode(t *testing.T) {
	log := logger.NewDiscardLogger()
	assert.Equal(t, ExitSuccess, determineExitCode(nil, nil, log))
	assert.Equal(t, ExitSigInt, determineExitCode(nil, syscall.SIGINT, log))
	assert.Equal(t, ExitSigTerm, determineExitCode(nil, syscall.SIGTERM, log))
	assert.Equal(t, ExitFailure, determineExitCode(errors.New("boom"), nil, log))
	assert.Equal(t, ExitFailure, determineExitCode(stimerrors.NewPresentationError("cue", 1, errors.New("lost")), syscall.SIGINT, log))
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, nil)
	assert.Contains(t, buf.String(), "No sequence was run")

	buf.Reset()
	printSummary(&buf, []*v1.RunReport{{Sequence: "cue", Status: "completed", Presentations: 3}})
	assert.Contains(t, buf.String(), "cue")
	assert.Contains(t, buf.String(), "completed")
}

func TestPrintSummary_ColouredColumnsStayAligned(t *testing.T) {
	prev := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.TrueColor)
	t.Cleanup(func() { lipgloss.SetColorProfile(prev) })

	var buf bytes.Buffer
	printSummary(&buf, []*v1.RunReport{
		{Sequence: "fixation", Status: "completed", Presentations: 12, Duration: 1500 * time.Millisecond},
		{Sequence: "cue", Status: "failed", Presentations: 1, Duration: 20 * time.Millisecond},
		{Sequence: "targets", Status: "stopped", Presentations: 4},
	})
	require.Contains(t, buf.String(), "\x1b[")

	field := regexp.MustCompile(`\S+`)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")[1:]
	require.Len(t, lines, 4)
	var starts [][]int
	for _, line := range lines {
		var cols []int
		for _, loc := range field.FindAllStringIndex(ansi.Strip(line), -1) {
			cols = append(cols, loc[0])
		}
		require.Len(t, cols, len(summaryHeader))
		starts = append(starts, cols)
	}
	for _, cols := range starts[1:] {
		assert.Equal(t, starts[0], cols)
	}
}
