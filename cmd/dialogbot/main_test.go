package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDir = "../../samples/RespondingWithTextSample"

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestValidate(t *testing.T) {
	out, err := run(t, "", "validate", "--dir", sampleDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Main.dialog")
	assert.Contains(t, out, "Menu.dialog")
	assert.Contains(t, out, "common.lg")
	assert.NotContains(t, out, "FAIL")
}

func TestValidate_Failure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Broken.dialog"), "kind: AdaptiveDialog\ntriggers:\n  - kind: OnBeginDialog\n    actions:\n      - kind: Teleport\n")

	out, err := run(t, "", "validate", "--dir", dir)
	require.ErrorIs(t, err, errValidation)
	assert.Contains(t, out, "Broken.dialog")
}

func TestChatAndTranscript(t *testing.T) {
	transcripts := t.TempDir()
	t.Setenv("DIALOGBOT_TRANSCRIPT_DIR", transcripts)

	out, err := run(t, "2\n/quit\n", "chat", "--plain", "--dir", sampleDir)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.Equal(t, "What type of message would you like to send?", lines[0])
	assert.Contains(t, out, "\nThis is a text saved in memory.\n")
	assert.Equal(t, 2, strings.Count(out, "   9. SwitchCondition"))

	out, err = run(t, "", "transcript", "--plain", "console-user")
	require.NoError(t, err)
	assert.Contains(t, out, "conversationUpdate\tuser\t")
	assert.Contains(t, out, "message\tuser\t2\n")
	assert.Contains(t, out, "message\tbot\tThis is a text saved in memory.\n")
}

func TestUnknownRootDialog(t *testing.T) {
	_, err := run(t, "", "chat", "--dir", sampleDir, "--root", "Missing.dialog")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing.dialog")
}
