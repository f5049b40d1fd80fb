// Projection of aggregation results into per-partition report tables.

package report

import (
	"fmt"
	"math"
	"slices"
	"time"

	"slurmstat/usage"
)

const DateFormat = "2006-01-02"

// Kind selects the columns of a report.
type Kind string

const (
	// Deduplicated usage time from start/end intervals
	UsageKind Kind = "usage"

	// CPU time, GPU time, and elapsed time from raw cpu time
	CpuTimeKind Kind = "cputime"
)

type Row struct {
	User  string `json:"user" yaml:"user"`
	Jobs  int64  `json:"jobs" yaml:"jobs"`
	Nodes int64  `json:"nodes" yaml:"nodes"`
	CPUs  int64  `json:"cpus" yaml:"cpus"`
	GPUs  int64  `json:"gpus" yaml:"gpus"`

	// Usage time for UsageKind, elapsed time for CpuTimeKind.  The duration is UsageSeconds
	// formatted by FormatDuration.
	UsageSeconds  float64 `json:"usage_seconds" yaml:"usage_seconds"`
	UsageDuration string  `json:"usage_duration" yaml:"usage_duration"`

	CpuSeconds int64   `json:"cpu_seconds,omitempty" yaml:"cpu_seconds,omitempty"`
	GpuSeconds float64 `json:"gpu_seconds,omitempty" yaml:"gpu_seconds,omitempty"`
}

type Table struct {
	Partition string `json:"partition" yaml:"partition"`
	Rows      []Row  `json:"rows" yaml:"rows"`
}

// Report is the renderer-independent result of a run: the resolved reporting window and one table
// per partition that has at least one row.
type Report struct {
	From   string  `json:"from" yaml:"from"`
	To     string  `json:"to" yaml:"to"`
	Kind   Kind    `json:"kind" yaml:"kind"`
	Tables []Table `json:"partitions" yaml:"partitions"`
}

// Project groups the result by partition, in the order the partitions were first seen, with the
// rows of each partition sorted by user name.
func Project(res *usage.Result, kind Kind, from, to time.Time) *Report {
	rep := &Report{
		From:   from.Format(DateFormat),
		To:     to.Format(DateFormat),
		Kind:   kind,
		Tables: make([]Table, 0, len(res.Partitions)),
	}
	for _, partition := range res.Partitions {
		users := res.Usage[partition]
		if len(users) == 0 {
			continue
		}
		names := make([]string, 0, len(users))
		for name := range users {
			names = append(names, name)
		}
		slices.Sort(names)
		rows := make([]Row, 0, len(names))
		for _, name := range names {
			acc := users[name]
			rows = append(rows, Row{
				User:          name,
				Jobs:          acc.Jobs,
				Nodes:         acc.Nodes,
				CPUs:          acc.CPUs,
				GPUs:          acc.GPUs,
				UsageSeconds:  acc.UsageSeconds,
				UsageDuration: FormatDuration(acc.UsageSeconds),
				CpuSeconds:    acc.CpuSeconds,
				GpuSeconds:    acc.GpuSeconds,
			})
		}
		rep.Tables = append(rep.Tables, Table{Partition: partition, Rows: rows})
	}
	return rep
}

// FormatDuration renders seconds as D-HH:MM:SS, rounded to the nearest second.  The day part is
// omitted when it is zero and negative values render as zero.
func FormatDuration(seconds float64) string {
	s := int64(math.Round(seconds))
	if s < 0 {
		s = 0
	}
	days := s / 86400
	s %= 86400
	hms := fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
	if days > 0 {
		return fmt.Sprintf("%d-%s", days, hms)
	}
	return hms
}
