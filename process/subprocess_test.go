package process

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSubprocess(t *testing.T) {
	stdout, stderr, err := RunSubprocess(context.Background(), "sh", []string{"-c", "echo out; echo err 1>&2"})
	require.NoError(t, err)
	assert.Equal(t, "out\n", stdout)
	assert.Equal(t, "err\n", stderr)
}

func TestRunSubprocessFailure(t *testing.T) {
	stdout, stderr, err := RunSubprocess(context.Background(), "sh", []string{"-c", "echo partial; echo oops 1>&2; exit 3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "While running sh")
	assert.Empty(t, stdout)
	assert.Equal(t, "oops\n", stderr)

	_, _, err = RunSubprocess(context.Background(), "/nonexistent/slurmstat-test-program", nil)
	require.Error(t, err)
}

func TestRunSubprocessCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := RunSubprocess(ctx, "sleep", []string{"5"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
