package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ttnmapper/internal/core/model"
)

func runCommand(t *testing.T, args []string, stdin string) (int, []string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)

	var lines []string
	for _, l := range strings.Split(strings.TrimSpace(stdout.String()), "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return code, lines, stderr.String()
}

func decodePosition(t *testing.T, line string) model.Position {
	t.Helper()
	var position model.Position
	require.NoError(t, json.Unmarshal([]byte(line), &position))
	return position
}

func TestRunArguments(t *testing.T) {
	code, lines, _ := runCommand(t, []string{"--device", "mapper-1", "--port", "2", "01102700E0D4FF", "BQAnEADU4ABkA+g="}, "")
	require.Equal(t, 0, code)
	require.Len(t, lines, 2)

	first := decodePosition(t, lines[0])
	assert.Equal(t, "mapper-1", first.DeviceID)
	assert.Equal(t, 2, first.Port)
	assert.Equal(t, "format1", first.Format)
	assert.InDelta(t, 0.10729, first.Latitude, 1e-5)

	second := decodePosition(t, lines[1])
	assert.Equal(t, "format5", second.Format)
	require.NotNil(t, second.Altitude)
	assert.Equal(t, 100, *second.Altitude)
}

func TestRunStdin(t *testing.T) {
	stdin := strings.Join([]string{
		`{"end_device_ids": {"device_id": "mapper-3"}, "received_at": "2024-05-01T10:00:00Z", "uplink_message": {"f_port": 2, "frm_payload": "BQAnEADU4ABkA+g="}}`,
		"",
		"09000000",
		"not base64 !!",
		"02 10 27 00 E0 D4 FF",
	}, "\n")

	code, lines, stderr := runCommand(t, []string{"--summary", "--grid", "-d", "mapper-4"}, stdin)
	require.Equal(t, 0, code)
	require.Len(t, lines, 3)

	v3 := decodePosition(t, lines[0])
	assert.Equal(t, "mapper-3", v3.DeviceID)
	require.NotNil(t, v3.Grid)
	assert.NotEmpty(t, v3.Grid.CellToken)

	hex := decodePosition(t, lines[1])
	assert.Equal(t, "mapper-4", hex.DeviceID)
	assert.Equal(t, "format2", hex.Format)

	var summary summaryLine
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &summary))
	require.Len(t, summary.Summary, 2)
	assert.Equal(t, "mapper-3", summary.Summary[0].DeviceID)

	assert.Contains(t, stderr, "uplink not decoded")
	assert.Contains(t, stderr, "skipping unparseable uplink")
}

func TestRunFileAndConfig(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "uplinks.txt")
	require.NoError(t, os.WriteFile(input, []byte("ARAnAODU/w==\n"), 0o644))
	cfgFile := filepath.Join(dir, "ttnmapper.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("input:\n  encoding: base64\n  device_id: from-config\n  port: 7\n"), 0o644))

	code, lines, _ := runCommand(t, []string{"-c", cfgFile, "-f", input}, "")
	require.Equal(t, 0, code)
	require.Len(t, lines, 1)

	position := decodePosition(t, lines[0])
	assert.Equal(t, "from-config", position.DeviceID)
	assert.Equal(t, 7, position.Port)
}

func TestRunNothingDecoded(t *testing.T) {
	code, lines, _ := runCommand(t, []string{"09000000"}, "")
	assert.Equal(t, 1, code)
	assert.Empty(t, lines)
}

func TestRunBadFlags(t *testing.T) {
	code, _, _ := runCommand(t, []string{"--input", "protobuf", "0100"}, "")
	assert.Equal(t, 2, code)

	code, _, _ = runCommand(t, []string{"--no-such-flag"}, "")
	assert.Equal(t, 2, code)

	code, _, stderr := runCommand(t, []string{"--help"}, "")
	assert.Equal(t, 0, code)
	assert.Contains(t, stderr, "Usage:")
}
