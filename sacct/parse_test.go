package sacct

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobLine(t *testing.T) {
	r, err := ParseJobLine(
		"gpu  alice  n[01-02]  billing=8,cpu=8,gres/gpu=2,mem=32G,node=2  2024-01-01T00:00:00  2024-01-01T01:00:00")
	require.NoError(t, err)
	assert.Equal(t, "gpu", r.Partition)
	assert.Equal(t, "alice", r.User)
	assert.Equal(t, []string{"n01", "n02"}, r.Nodes)
	assert.Equal(t, Alloc{CPUs: 8, GPUs: 2, Nodes: 2}, r.Alloc)
	assert.Equal(t, int64(1704067200), r.Start)
	assert.Equal(t, int64(3600), r.End-r.Start)
}

func TestParseCpuTimeLine(t *testing.T) {
	r, err := ParseCpuTimeLine("c[1-2],gpu3 normal bob cpu=16,mem=4G,node=3 57600")
	require.NoError(t, err)
	assert.Equal(t, "normal", r.Partition)
	assert.Equal(t, "bob", r.User)
	assert.Equal(t, []string{"c1", "c2", "gpu3"}, r.Nodes)
	assert.Equal(t, Alloc{CPUs: 16, GPUs: 0, Nodes: 3}, r.Alloc)
	assert.Equal(t, int64(57600), r.CpuTimeRaw)

	_, err = ParseCpuTimeLine("c1 normal bob cpu=16,node=1 lots")
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestFieldCount(t *testing.T) {
	// Five tokens where six are required
	line := "gpu alice n1 cpu=4,node=1 2024-01-01T00:00:00"
	_, err := ParseJobLine(line)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedRecord)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, line, perr.Line)
	assert.Contains(t, perr.Reason, "Expected 6 fields, got 5")

	// A partition name with a space also shifts the columns
	_, err = ParseJobLine("my gpu alice n1 cpu=4,node=1 2024-01-01T00:00:00 2024-01-01T01:00:00")
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		line string
		kind error
	}{
		{"p u n1 cpu=4,node=1 2024-01-01 2024-01-01T01:00:00", ErrMalformedTimestamp},
		{"p u n1 cpu=4,node=1 2024-01-01T00:00:00 2024-01-01T01:00:00Z", ErrMalformedTimestamp},
		{"p u n1 cpu=4,node=1 2024-01-01T00:00:00.5 2024-01-01T01:00:00", ErrMalformedTimestamp},
		{"p u n1 cpu=4,node=1 Unknown 2024-01-01T01:00:00", ErrMalformedTimestamp},
		{"p u n1 node=1 2024-01-01T00:00:00 2024-01-01T01:00:00", ErrInvalidResourceSpec},
		{"p u n1 cpu=x,node=1 2024-01-01T00:00:00 2024-01-01T01:00:00", ErrInvalidResourceSpec},
		{"p u n[3-1] cpu=4,node=1 2024-01-01T00:00:00 2024-01-01T01:00:00", ErrInvalidNodeList},
		{"p u 17 cpu=4,node=1 2024-01-01T00:00:00 2024-01-01T01:00:00", ErrInvalidNodeList},
	}
	for _, c := range cases {
		_, err := ParseJobLine(c.line)
		assert.ErrorIs(t, err, c.kind, c.line)
	}
}

func TestParseAllocTRES(t *testing.T) {
	a, err := ParseAllocTRES("billing=4,cpu=4,mem=16G,node=1")
	require.NoError(t, err)
	assert.Equal(t, Alloc{CPUs: 4, GPUs: 0, Nodes: 1}, a)

	a, err = ParseAllocTRES("node=2,gpu=3,cpu=12")
	require.NoError(t, err)
	assert.Equal(t, Alloc{CPUs: 12, GPUs: 3, Nodes: 2}, a)

	// Per-model counts are the fallback when gres/gpu is absent
	a, err = ParseAllocTRES("cpu=8,gres/gpu:a100=2,gres/gpu:v100=1,node=2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), a.GPUs)

	a, err = ParseAllocTRES("cpu=8,gres/gpu:a100=2,gres/gpu=2,node=1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.GPUs)

	for _, bad := range []string{"", "cpu=4", "node=1", "cpu=-1,node=1", "cpu=4,node=one"} {
		_, err := ParseAllocTRES(bad)
		assert.ErrorIs(t, err, ErrInvalidResourceSpec, bad)
	}
}

func TestParseTimestamp(t *testing.T) {
	a, err := ParseTimestamp("2024-01-01T00:30:00")
	require.NoError(t, err)
	b, err := ParseTimestamp("2024-01-01T02:00:00")
	require.NoError(t, err)
	assert.Equal(t, int64(5400), b-a)

	for _, bad := range []string{"", "2024-1-01T00:30:00", "2024-01-01 00:30:00", "2024-13-01T00:00:00"} {
		_, err := ParseTimestamp(bad)
		assert.ErrorIs(t, err, ErrMalformedTimestamp, bad)
	}
}

const sampleText = `gpu alice n1 cpu=4,gpu=1,node=1 2024-01-01T00:00:00 2024-01-01T01:00:00
gpu alice None assigned cpu=4,node=1 2024-01-01T00:00:00 2024-01-01T00:00:00

gpu bob n[1-2] cpu=4,node=2 2024-01-01T00:00:00
normal carol c5 cpu=1,node=1 2024-01-01T03:00:00 2024-01-01T04:00:00
`

func TestScanSkips(t *testing.T) {
	var bad []*ParseError
	count := 0
	rs, err := ScanJobRecords(strings.NewReader(sampleText), CountErrors(&count, func(e *ParseError) {
		bad = append(bad, e)
	}))
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "alice", rs[0].User)
	assert.Equal(t, "carol", rs[1].User)
	assert.Equal(t, 1, count)
	require.Len(t, bad, 1)
	assert.True(t, strings.HasPrefix(bad[0].Line, "gpu bob"))

	rs, err = ScanJobRecords(strings.NewReader(sampleText), SkipErrors)
	require.NoError(t, err)
	assert.Len(t, rs, 2)
}

func TestScanAborts(t *testing.T) {
	rs, err := ScanJobRecords(strings.NewReader(sampleText), AbortOnError)
	assert.Nil(t, rs)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestExcluded(t *testing.T) {
	assert.True(t, Excluded(""))
	assert.True(t, Excluded("   "))
	assert.True(t, Excluded("gpu alice None assigned cpu=4,node=1 x y"))
	assert.False(t, Excluded("gpu alice n1 cpu=4,node=1 x y"))
}
