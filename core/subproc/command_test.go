package subproc

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatus_true(t *testing.T) {
	status, err := New("true").RunStatus()

	assert.NoError(t, err)
	assert.Equal(t, 0, status)
}

func TestRun_false(t *testing.T) {
	status, err := New("false").Run()

	assert.Equal(t, 1, status)
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 1, cmdErr.Status)
	assert.True(t, errors.Is(err, Err))
}

func TestRunStatus_falseDoesNotError(t *testing.T) {
	status, err := New("false").RunStatus()

	assert.NoError(t, err)
	assert.Equal(t, 1, status)
}

func TestCaptureOutput(t *testing.T) {
	var out bytes.Buffer

	status, err := New("echo abc").CaptureOutput(&out).Run()

	assert.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Equal(t, "abc\n", out.String())
}

func TestInput_head(t *testing.T) {
	var out bytes.Buffer

	_, err := New("head -n2").
		Input([]byte("1\n2\n3\n4\n5")).
		CaptureOutput(&out).
		Run()

	assert.NoError(t, err)
	assert.Equal(t, "1\n2\n", out.String())
}

func TestChain_fiveStages(t *testing.T) {
	status, err := New("ps aux").
		Chain(New("awk '{print $2}'")).
		Chain(New("sort")).
		Chain(New("uniq")).
		Chain(New("head -n1")).
		OutputFile(os.DevNull).
		Run()

	assert.NoError(t, err)
	assert.Equal(t, 0, status)
}

func TestChain_roundTrip(t *testing.T) {
	input := []byte("the quick brown fox\njumps over the lazy dog\n")
	var out bytes.Buffer

	_, err := New("cat").
		Input(input).
		Chain(New("cat")).
		CaptureOutput(&out).
		Run()

	assert.NoError(t, err)
	assert.Equal(t, input, out.Bytes())
}

func TestChain_downstreamExitsEarly(t *testing.T) {
	var out bytes.Buffer

	// head exits after one line; yes must then see SIGPIPE and the
	// capture pipe must see EOF. Both only happen if no child
	// inherited stray copies of the pipeline's other pipe ends.
	status, err := New("yes").
		Chain(New("head -n1")).
		CaptureOutput(&out).
		RunStatus()

	assert.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Equal(t, "y\n", out.String())
}

func TestChain_captureCarriedOver(t *testing.T) {
	var out bytes.Buffer

	// `a | (b > var)` captures b's stdout, not a's.
	b := New("tr a-z A-Z").CaptureOutput(&out)
	_, err := New("echo carried").Chain(b).Run()

	assert.NoError(t, err)
	assert.Equal(t, "CARRIED\n", out.String())
}

func TestChain_consumesOther(t *testing.T) {
	b := New("cat")
	New("echo hi").Chain(b).Chain(New("cat")).OutputFile(os.DevNull).Run()

	_, err := b.RunStatus()

	var usageErr *UsageError
	assert.True(t, errors.As(err, &usageErr))
}

func TestRun_missingExecutable(t *testing.T) {
	_, err := New("definitely-not-a-real-command-xyz").Run()

	var osErr *OSError
	assert.True(t, errors.As(err, &osErr))

	// RunStatus never suppresses OS errors either.
	_, err = New("definitely-not-a-real-command-xyz").RunStatus()
	assert.True(t, errors.As(err, &osErr))
}

func TestOutputFile_truncateAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")

	_, err := New("echo one").OutputFile(path).Run()
	require.NoError(t, err)
	_, err = New("echo two").AppendOutputFile(path).Run()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))

	_, err = New("echo three").OutputFile(path).Run()
	require.NoError(t, err)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "three\n", string(data))
}

func TestInputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("from a file"), 0600))
	var out bytes.Buffer

	_, err := New("cat").InputFile(path).CaptureOutput(&out).Run()

	assert.NoError(t, err)
	assert.Equal(t, "from a file", out.String())
}

func TestCaptureError(t *testing.T) {
	var errOut bytes.Buffer

	status, err := NewArgs("sh", "-c", "echo oops >&2").
		CaptureError(&errOut).
		Run()

	assert.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Equal(t, "oops\n", errOut.String())
}

func TestErrorFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "err.txt")

	_, err := NewArgs("sh", "-c", "echo oops >&2").ErrorFile(path).Run()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "oops\n", string(data))
}

func TestErrorToStdout(t *testing.T) {
	var out bytes.Buffer

	_, err := NewArgs("sh", "-c", "echo out && echo err >&2").
		CaptureOutput(&out).
		ErrorToStdout().
		Run()

	assert.NoError(t, err)
	assert.Equal(t, "out\nerr\n", out.String())
}

func TestLatestRedirectionWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	var out bytes.Buffer

	// The file redirection clears the pending capture binding.
	_, err := New("echo abc").CaptureOutput(&out).OutputFile(path).Run()
	require.NoError(t, err)

	assert.Empty(t, out.String())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc\n", string(data))
}

func TestCommand_singleUse(t *testing.T) {
	c := New("true")
	_, err := c.RunStatus()
	require.NoError(t, err)

	_, err = c.RunStatus()
	var usageErr *UsageError
	assert.True(t, errors.As(err, &usageErr))

	// Mutation after run is rejected too.
	c.OutputFile(os.DevNull)
	assert.True(t, errors.As(c.Err(), &usageErr))
}

func TestNewArgs_noExpansion(t *testing.T) {
	var out bytes.Buffer

	_, err := NewArgs("echo", "$HOME", "a b").CaptureOutput(&out).Run()

	assert.NoError(t, err)
	assert.Equal(t, "$HOME a b\n", out.String())
}

func TestRun_builderErrorSurfaces(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	c := New("cat").InputFile(missing)
	_, err := c.Run()

	var osErr *OSError
	assert.True(t, errors.As(err, &osErr))
	assert.Equal(t, c.Err(), err)
}
