// The aggregation engine folds job records into per-(partition, user) usage.
//
// Counters are running sums over the records and double count allocations of overlapping jobs.
// Usage time is instead computed per node from the intervals the user's jobs occupied it, merged
// according to the configured policy so that concurrent jobs on one node are counted once, and
// summed across nodes.  The engine does no I/O and does not log.

package usage

import (
	"slurmstat/sacct"
)

// Config is the per-run configuration of an Engine.
type Config struct {
	// If not "", only records for this user are folded in.
	User string

	Merge MergePolicy
}

// Accumulator holds the usage of one user in one partition.
type Accumulator struct {
	Jobs  int64
	Nodes int64
	CPUs  int64
	GPUs  int64

	// Deduplicated node-seconds for interval records, plus cputime/cpus for cpu-time records.  Zero
	// until Finish.
	UsageSeconds float64

	// From cpu-time records only.
	CpuSeconds int64
	GpuSeconds float64
}

type userUsage struct {
	acc       Accumulator
	elapsed   float64
	nodeOrder []string
	nodes     map[string][]Interval
}

type partitionUsage struct {
	users map[string]*userUsage
}

// Engine is the state of one aggregation run.  It is not thread-safe.
type Engine struct {
	config         Config
	partitionOrder []string
	partitions     map[string]*partitionUsage
}

func NewEngine(config Config) *Engine {
	e := &Engine{config: config}
	e.reset()
	return e
}

func (e *Engine) reset() {
	e.partitionOrder = make([]string, 0)
	e.partitions = make(map[string]*partitionUsage)
}

func (e *Engine) Config() Config {
	return e.config
}

func (e *Engine) user(partition, user string) *userUsage {
	p := e.partitions[partition]
	if p == nil {
		p = &partitionUsage{users: make(map[string]*userUsage)}
		e.partitions[partition] = p
		e.partitionOrder = append(e.partitionOrder, partition)
	}
	u := p.users[user]
	if u == nil {
		u = &userUsage{nodes: make(map[string][]Interval)}
		p.users[user] = u
	}
	return u
}

func (e *Engine) accept(user string) bool {
	return e.config.User == "" || e.config.User == user
}

func (u *userUsage) count(a sacct.Alloc) {
	u.acc.Jobs++
	u.acc.Nodes += a.Nodes
	u.acc.CPUs += a.CPUs
	u.acc.GPUs += a.GPUs
}

// Fold adds one interval record.  It returns false if the record was filtered out.
func (e *Engine) Fold(r *sacct.JobRecord) bool {
	if !e.accept(r.User) {
		return false
	}
	u := e.user(r.Partition, r.User)
	u.count(r.Alloc)
	x := Interval{Start: r.Start, End: r.End}
	for _, node := range r.Nodes {
		xs, found := u.nodes[node]
		if !found {
			u.nodeOrder = append(u.nodeOrder, node)
		}
		u.nodes[node] = append(xs, x)
	}
	return true
}

// FoldCpuTime adds one cpu-time record.  The record's gpu time is its cpu time scaled by gpus/cpus
// and its elapsed time is its cpu time divided by cpus; with no cpus neither gets a contribution.
func (e *Engine) FoldCpuTime(r *sacct.CpuTimeRecord) bool {
	if !e.accept(r.User) {
		return false
	}
	u := e.user(r.Partition, r.User)
	u.count(r.Alloc)
	u.acc.CpuSeconds += r.CpuTimeRaw
	if r.CPUs > 0 {
		cpuTime := float64(r.CpuTimeRaw)
		u.acc.GpuSeconds += float64(r.GPUs) * cpuTime / float64(r.CPUs)
		u.elapsed += cpuTime / float64(r.CPUs)
	}
	return true
}

// Result is the outcome of a run.
type Result struct {
	// Partitions in the order they were first seen
	Partitions []string

	// partition -> user -> usage
	Usage map[string]map[string]*Accumulator
}

// Finish merges the interval sets, drains the engine and returns the result.  The engine is empty
// afterwards and can be used for a new run.
func (e *Engine) Finish() *Result {
	result := &Result{
		Partitions: e.partitionOrder,
		Usage:      make(map[string]map[string]*Accumulator, len(e.partitions)),
	}
	for _, name := range e.partitionOrder {
		p := e.partitions[name]
		users := make(map[string]*Accumulator, len(p.users))
		for userName, u := range p.users {
			var total int64
			for _, node := range u.nodeOrder {
				total += e.config.Merge.Merge(u.nodes[node])
			}
			acc := u.acc
			acc.UsageSeconds = float64(total) + u.elapsed
			users[userName] = &acc
		}
		result.Usage[name] = users
	}
	e.reset()
	return result
}

// Aggregate runs an engine over interval records.
func Aggregate(config Config, records []*sacct.JobRecord) *Result {
	e := NewEngine(config)
	for _, r := range records {
		e.Fold(r)
	}
	return e.Finish()
}

// AggregateCpuTime runs an engine over cpu-time records.
func AggregateCpuTime(config Config, records []*sacct.CpuTimeRecord) *Result {
	e := NewEngine(config)
	for _, r := range records {
		e.FoldCpuTime(r)
	}
	return e.Finish()
}
