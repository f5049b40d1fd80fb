package sacct

import (
	"fmt"
	"strings"
)

// Alloc holds the resources allocated to a job, from the AllocTRES field.
type Alloc struct {
	CPUs  int64
	GPUs  int64
	Nodes int64
}

// JobRecord is one allocation (`sacct -X`) with its start and end times.  The record is immutable
// once constructed.  Start and End are seconds since the epoch of the wall clock time printed by
// sacct, read as if it were UTC; only their differences are meaningful.  End >= Start is not
// guaranteed.
type JobRecord struct {
	Partition string
	User      string
	Nodes     []string
	Alloc
	Start int64
	End   int64
}

// CpuTimeRecord is one allocation with its raw CPU time (cores * elapsed seconds).
type CpuTimeRecord struct {
	Partition  string
	User       string
	Nodes      []string
	Alloc
	CpuTimeRaw int64
}

// Shape selects the fields requested from sacct and thereby the layout of each output line.
type Shape int

const (
	// partition user nodelist alloctres start end
	IntervalShape Shape = iota

	// nodelist partition user alloctres cputimeraw
	CpuTimeShape
)

// The field widths prevent sacct from truncating the values (it marks truncation with "+").
var (
	// MT: Constant after initialization; immutable
	intervalFields = []string{"partition%20", "user%20", "nodelist%256", "alloctres%80", "start", "end"}
	cpuTimeFields  = []string{"nodelist%256", "partition%20", "user%20", "alloctres%80", "cputimeraw"}
)

func (s Shape) Fields() []string {
	switch s {
	case IntervalShape:
		return intervalFields
	case CpuTimeShape:
		return cpuTimeFields
	default:
		panic(fmt.Sprintf("Unknown shape %d", int(s)))
	}
}

func (s Shape) String() string {
	switch s {
	case IntervalShape:
		return "interval"
	case CpuTimeShape:
		return "cputime"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// FormatOption is the --format argument for sacct.
func (s Shape) FormatOption() string {
	return "--format=" + strings.Join(s.Fields(), ",")
}
