package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitWords(t *testing.T) {
	cases := map[string]struct {
		line string
		want []string
	}{
		"simple":        {"echo a b", []string{"echo", "a", "b"}},
		"quotes-kept":   {"awk '{print $2}' | sort", []string{"awk", "'{print $2}'", "|", "sort"}},
		"double-quotes": {`grep "a b" f.txt`, []string{"grep", `"a b"`, "f.txt"}},
		"escape":        {`echo a\ b`, []string{"echo", `a\ b`}},
		"tabs":          {"a\t\tb", []string{"a", "b"}},
		"empty":         {"", nil},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := splitWords(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSplitWords_unterminatedQuote(t *testing.T) {
	_, err := splitWords("echo 'oops")
	assert.Error(t, err)
}

func TestParsePipeline_capture(t *testing.T) {
	pipeline, err := parsePipeline("echo abc | tr a-z A-Z")
	require.NoError(t, err)

	var out bytes.Buffer
	status, runErr := pipeline.CaptureOutput(&out).Run()

	assert.NoError(t, runErr)
	assert.Equal(t, 0, status)
	assert.Equal(t, "ABC\n", out.String())
}

func TestParsePipeline_redirections(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.txt")
	outPath := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(inPath, []byte("3\n1\n2\n"), 0600))

	pipeline, err := parsePipeline("sort < " + inPath + " | head -n1 > " + outPath)
	require.NoError(t, err)

	status, runErr := pipeline.RunStatus()
	require.NoError(t, runErr)
	assert.Equal(t, 0, status)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "1\n", string(data))
}

func TestParsePipeline_append(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.txt")

	for _, line := range []string{
		"echo one > " + outPath,
		"echo two >> " + outPath,
	} {
		pipeline, err := parsePipeline(line)
		require.NoError(t, err)
		_, err = pipeline.RunStatus()
		require.NoError(t, err)
	}

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))
}

func TestParsePipeline_stderr(t *testing.T) {
	errPath := filepath.Join(t.TempDir(), "err.txt")

	pipeline, err := parsePipeline("ls /definitely-not-a-real-path 2> " + errPath)
	require.NoError(t, err)

	status, runErr := pipeline.RunStatus()
	require.NoError(t, runErr)
	assert.NotEqual(t, 0, status)

	data, err := os.ReadFile(errPath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestParsePipeline_quotedOperatorIsLiteral(t *testing.T) {
	pipeline, err := parsePipeline(`echo '|'`)
	require.NoError(t, err)

	var out bytes.Buffer
	_, runErr := pipeline.CaptureOutput(&out).Run()

	assert.NoError(t, runErr)
	assert.Equal(t, "|\n", out.String())
}

func TestParsePipeline_syntaxErrors(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"empty-stage":      "a | | b",
		"leading-pipe":     "| cat",
		"missing-operand":  "echo hi >",
		"input-not-first":  "echo hi | cat < in.txt",
		"output-not-last":  "echo hi > out.txt | cat",
		"unmatched-quote":  "echo 'oops",
		"only-redirection": "> out.txt",
	}

	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parsePipeline(line)
			assert.Error(t, err)
		})
	}
}
