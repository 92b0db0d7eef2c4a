package cli

// Test Plan for the commands:
// - version prints the build information
// - collect --json prints the keys of the file set in discovery order
// - collect writes one PO catalog per locale into the project
// - wrap --dry-run reports per-file counts and leaves files untouched
// - wrap rewrites the file set to the expected output
// - wrap --prompt stops on q and leaves the in-flight file untouched
// - wrap with control messages prints the message summary
// - the terminal prompter re-asks on unknown answers and aborts on EOF
// - the progress reporter keeps the run going when its output fails, logging at debug level
//
// Commands share package state, so these tests do not run in parallel.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/harvester/internal/fileset"
	"github.com/mvp-joe/harvester/internal/source"
	"github.com/mvp-joe/harvester/internal/wrap"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	projectDir, verbose = ".", false
	collectOpts = collectFlags{}
	wrapOpts = wrapFlags{}

	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func copyTree(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.CopyFS(dir, os.DirFS(src)))
	return dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Harvester dev")
}

func TestCollectCommand_JSON(t *testing.T) {
	dir := copyTree(t, "../../testdata/collect")

	out, err := runCLI(t, "", "collect", "-C", dir, "--json")
	require.NoError(t, err)

	var decoded map[string][]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Len(t, decoded, 4)
	assert.Len(t, decoded["Ключ 0_1"], 8)

	_, err = os.Stat(filepath.Join(dir, "locales"))
	assert.True(t, os.IsNotExist(err))
}

func TestCollectCommand_WritesCatalogs(t *testing.T) {
	dir := copyTree(t, "../../testdata/collect")

	out, err := runCLI(t, "", "collect", "-C", dir, "--locales", "en,ru")
	require.NoError(t, err)

	for _, locale := range []string{"en", "ru"} {
		path := filepath.Join(dir, "locales", "messages."+locale+".po")
		assert.Contains(t, out, path)
		assert.Contains(t, readFile(t, path), "msgid \"Ключ 3_1\"")
	}
}

func TestWrapCommand_DryRun(t *testing.T) {
	dir := copyTree(t, "../../testdata/wrap")

	out, err := runCLI(t, "", "wrap", "-C", dir, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "js/clean.js: would wrap 5")
	assert.Contains(t, out, "lua/dirty.lua: would wrap 2")
	assert.NotContains(t, out, "_wrapped")

	assert.Equal(t, readFile(t, "../../testdata/wrap/js/clean.js"), readFile(t, filepath.Join(dir, "js/clean.js")))
}

func TestWrapCommand_Rewrites(t *testing.T) {
	dir := copyTree(t, "../../testdata/wrap")

	_, err := runCLI(t, "", "wrap", "-C", dir, "--quiet")
	require.NoError(t, err)

	for _, name := range []string{"js/dirty.js", "lua/clean.lua", "templates/handlebars/dirty.handlebars"} {
		ext := filepath.Ext(name)
		want := readFile(t, filepath.Join("../../testdata/wrap", strings.TrimSuffix(name, ext)+"_wrapped"+ext))
		assert.Equal(t, want, readFile(t, filepath.Join(dir, name)), name)
	}
}

func TestWrapCommand_PromptQuit(t *testing.T) {
	dir := copyTree(t, "../../testdata/wrap")

	out, err := runCLI(t, "q\n", "wrap", "-C", dir, "--prompt", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrap? [y/n/q]")
	assert.Contains(t, out, "js/clean.js:")

	assert.Equal(t, readFile(t, "../../testdata/wrap/js/clean.js"), readFile(t, filepath.Join(dir, "js/clean.js")))
}

func TestWrapCommand_ControlMessages(t *testing.T) {
	dir := copyTree(t, "../../testdata/smart/js")

	out, err := runCLI(t, "", "wrap", "-C", dir, "--dry-run",
		"--pattern", "control_messages_without_prompt.js",
		"--control-messages", "../../testdata/smart/control_messages.json")
	require.NoError(t, err)
	assert.Contains(t, out, "control_messages_without_prompt.js: would wrap")
	assert.Contains(t, out, "Message Z")
}

func TestTerminalPrompter(t *testing.T) {
	c := wrap.Candidate{
		Source: "a.js",
		Text:   "Save",
		Line:   "var s = 'Save';",
		Span: source.Span{
			Start: source.Position{Line: 1, Column: 9},
			End:   source.Position{Line: 1, Column: 13},
		},
	}

	tests := []struct {
		input string
		want  wrap.Decision
	}{
		{input: "y\n", want: wrap.Accept},
		{input: "maybe\nn\n", want: wrap.Decline},
		{input: "Q\n", want: wrap.Abort},
		{input: "", want: wrap.Abort},
		{input: "yes", want: wrap.Accept},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var out bytes.Buffer
			p := newTerminalPrompter(strings.NewReader(tt.input), &out, true)

			got, err := p.Confirm(context.Background(), c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "a.js:1:10")
			assert.Contains(t, out.String(), "var s = 'Save';")
		})
	}

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := newTerminalPrompter(strings.NewReader("y\n"), &bytes.Buffer{}, true)
		got, err := p.Confirm(ctx, c)
		assert.Error(t, err)
		assert.Equal(t, wrap.Abort, got)
	})
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("output closed")
}

func TestCLIProgressReporter_OutputFailure(t *testing.T) {
	var logs bytes.Buffer
	r := NewCLIProgressReporter(failingWriter{}, false, zerolog.New(&logs).Level(zerolog.DebugLevel))

	r.OnDiscoveryComplete(2)
	assert.True(t, r.OnFile("a.js", 1, nil))
	assert.True(t, r.OnFile("b.js", 0, errors.New("broken")))
	r.OnComplete(&fileset.Result{})
	assert.Equal(t, 1, r.failed)

	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		if line == "" {
			continue
		}
		assert.Contains(t, line, `"level":"debug"`)
		assert.Contains(t, line, "progress bar")
	}
}
