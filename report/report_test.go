package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"slurmstat/usage"
)

var (
	jan1  = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jan31 = time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
)

func testResult() *usage.Result {
	return &usage.Result{
		Partitions: []string{"normal", "empty", "gpu"},
		Usage: map[string]map[string]*usage.Accumulator{
			"normal": {
				"zed":   {Jobs: 1, Nodes: 1, CPUs: 4, UsageSeconds: 59.6},
				"alice": {Jobs: 3, Nodes: 4, CPUs: 64, GPUs: 0, UsageSeconds: 90061},
			},
			"empty": {},
			"gpu": {
				"bob": {Jobs: 2, Nodes: 2, CPUs: 8, GPUs: 2, UsageSeconds: 7200},
			},
		},
	}
}

func TestProject(t *testing.T) {
	rep := Project(testResult(), UsageKind, jan1, jan31)
	assert.Equal(t, "2024-01-01", rep.From)
	assert.Equal(t, "2024-01-31", rep.To)
	require.Len(t, rep.Tables, 2)
	assert.Equal(t, "normal", rep.Tables[0].Partition)
	assert.Equal(t, "gpu", rep.Tables[1].Partition)
	require.Len(t, rep.Tables[0].Rows, 2)
	assert.Equal(t, "alice", rep.Tables[0].Rows[0].User)
	assert.Equal(t, "zed", rep.Tables[0].Rows[1].User)
	assert.Equal(t, int64(64), rep.Tables[0].Rows[0].CPUs)
	assert.Equal(t, "1-01:01:01", rep.Tables[0].Rows[0].UsageDuration)
	assert.Equal(t, "00:01:00", rep.Tables[0].Rows[1].UsageDuration)

	empty := Project(&usage.Result{}, UsageKind, jan1, jan31)
	assert.Empty(t, empty.Tables)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatDuration(0))
	assert.Equal(t, "00:00:00", FormatDuration(-5))
	assert.Equal(t, "00:01:00", FormatDuration(59.6))
	assert.Equal(t, "02:00:00", FormatDuration(7200))
	assert.Equal(t, "1-01:01:01", FormatDuration(90061))
	assert.Equal(t, "31-00:00:00", FormatDuration(31*86400))
}

func TestFixed(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Render(&out, Project(testResult(), UsageKind, jan1, jan31), Options{}))
	want := `
Usage statistics from 2024-01-01 to 2024-01-31

<normal>
+-------+------+-------+------+------+------------+
|  USER | JOBS | NODES | CPUS | GPUS |      USAGE |
+-------+------+-------+------+------+------------+
| alice |    3 |     4 |   64 |    0 | 1-01:01:01 |
|   zed |    1 |     1 |    4 |    0 |   00:01:00 |
+-------+------+-------+------+------+------------+

<gpu>
+------+------+-------+------+------+----------+
| USER | JOBS | NODES | CPUS | GPUS |    USAGE |
+------+------+-------+------+------+----------+
|  bob |    2 |     2 |    8 |    2 | 02:00:00 |
+------+------+-------+------+------+----------+
`
	assert.Equal(t, want, out.String())
}

func TestFixedEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Render(&out, Project(&usage.Result{}, UsageKind, jan1, jan31), Options{}))
	assert.Equal(t, "\nUsage statistics from 2024-01-01 to 2024-01-31\n", out.String())
}

func TestCpuTimeColumns(t *testing.T) {
	res := &usage.Result{
		Partitions: []string{"gpu"},
		Usage: map[string]map[string]*usage.Accumulator{
			"gpu": {"alice": {Jobs: 1, Nodes: 1, CPUs: 8, GPUs: 2, CpuSeconds: 28800, GpuSeconds: 7200, UsageSeconds: 3600}},
		},
	}
	rep := Project(res, CpuTimeKind, jan1, jan31)

	var out bytes.Buffer
	require.NoError(t, Render(&out, rep, Options{Format: FormatCsv}))
	assert.Equal(t,
		"partition,user,jobs,nodes,cpus,gpus,cpu_time,gpu_time,elapsed_time\n"+
			"gpu,alice,1,1,8,2,28800,7200,3600\n",
		out.String())

	out.Reset()
	require.NoError(t, Render(&out, rep, Options{}))
	assert.Contains(t, out.String(), "|  USER | JOBS | NODES | CPUS | GPUS | CPU_TIME | GPU_TIME | ELAPSED_TIME |")
	assert.Contains(t, out.String(), "| alice |")
	assert.Contains(t, out.String(), "08:00:00 | 02:00:00 |     01:00:00 |")
}

func TestCsvAndAwk(t *testing.T) {
	rep := Project(testResult(), UsageKind, jan1, jan31)
	var out bytes.Buffer
	require.NoError(t, Render(&out, rep, Options{Format: FormatCsv}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "partition,user,jobs,nodes,cpus,gpus,usage", lines[0])
	assert.Equal(t, "normal,alice,3,4,64,0,90061", lines[1])
	assert.Equal(t, "gpu,bob,2,2,8,2,7200", lines[3])

	out.Reset()
	require.NoError(t, Render(&out, rep, Options{Format: FormatAwk}))
	assert.Equal(t, "normal alice 3 4 64 0 90061\nnormal zed 1 1 4 0 60\ngpu bob 2 2 8 2 7200\n", out.String())
}

func TestStructured(t *testing.T) {
	rep := Project(testResult(), UsageKind, jan1, jan31)

	var out bytes.Buffer
	require.NoError(t, Render(&out, rep, Options{Format: FormatJson}))
	var fromJson Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &fromJson))
	assert.Equal(t, *rep, fromJson)
	assert.Contains(t, out.String(), `"usage_seconds":7200,"usage_duration":"02:00:00"`)

	out.Reset()
	require.NoError(t, Render(&out, rep, Options{Format: FormatYaml}))
	assert.Contains(t, out.String(), "partition: normal")
	assert.Contains(t, out.String(), "usage_duration:")
	var fromYaml Report
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &fromYaml))
	assert.Equal(t, rep.Tables[1].Rows[0], fromYaml.Tables[1].Rows[0])
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"fixed", "csv", "json", "yaml", "awk"} {
		f, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, name, f.String())
	}
	var f Format
	assert.Error(t, f.Set("xml"))
	assert.Equal(t, FormatFixed, f)
}
