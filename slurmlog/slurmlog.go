// Reconstruction of `sacct -X -T` output from sources that report every job step, possibly many
// times over, with untruncated times.
//
// Sources that sample the Slurm database (Sonar's jobs documents, the slurm-monitor database) see
// the same job repeatedly as it moves through its states, and see its steps as separate records.
// Only the allocation itself, the "main" record, is of interest here.  The main record is the one
// that has a user name; steps don't.  The pair (JobID, JobStep) identifies a record.  A record is
// kept from the first copy that has started on some nodes, in the position of that copy.  A later
// copy replaces it only if the kept copy had no end time and the later one has one, ie, the job has
// completed since; other copies are redundant.

package slurmlog

import (
	"fmt"
	"strings"
	"time"

	"slurmstat/hostglob"
	"slurmstat/sacct"
)

// Entry is one job or job step as reported by a source.  Start and End are seconds since the epoch,
// zero if not known (the job has not started or not ended).
type Entry struct {
	JobID     uint64
	JobStep   string
	Partition string
	User      string
	NodeList  string
	AllocTRES string
	Start     int64
	End       int64
}

// Render the entry as a line of sacct text, for error messages.
func (e *Entry) String() string {
	return fmt.Sprintf("%s %s %s %s %s %s",
		e.Partition, e.User, e.NodeList, e.AllocTRES, timestamp(e.Start), timestamp(e.End))
}

func timestamp(t int64) string {
	if t == 0 {
		return "Unknown"
	}
	return time.Unix(t, 0).UTC().Format(sacct.TimestampFormat)
}

type jobkey struct {
	JobID   uint64
	JobStep string
}

type slot struct {
	index int  // in records
	open  bool // the kept copy had no end time
}

// Collector turns entries into JobRecords in arrival order.
type Collector struct {
	from, to int64
	user     string
	onError  sacct.ErrorHandler
	seen     map[jobkey]slot
	records  []*sacct.JobRecord

	// Statistics, for verbose output
	Duplicates int
	Replaced   int
	Steps      int
	Outside    int
}

func NewCollector(q *sacct.Query, onError sacct.ErrorHandler) *Collector {
	from, to := q.Window()
	return &Collector{
		from:    from,
		to:      to,
		user:    q.User,
		onError: onError,
		seen:    make(map[jobkey]slot),
		records: make([]*sacct.JobRecord, 0),
	}
}

// Add considers one entry.  The error is the one returned by the error handler, if the entry could
// not be converted.
func (c *Collector) Add(e *Entry) error {
	if e.User == "" {
		c.Steps++
		return nil
	}
	if c.user != "" && e.User != c.user {
		return nil
	}
	// Not started yet, or never ran
	if e.Start == 0 || e.NodeList == "" || strings.Contains(e.NodeList, sacct.NoneAssigned) {
		return nil
	}
	key := jobkey{e.JobID, e.JobStep}
	prev, found := c.seen[key]
	if found && !(prev.open && e.End != 0) {
		c.Duplicates++
		return nil
	}

	// Running jobs are truncated at the end of the window, as with `sacct -T`.
	end := e.End
	if end == 0 {
		end = c.to
	}
	start, end, ok := sacct.ClipToWindow(e.Start, end, c.from, c.to)
	if !ok {
		if found {
			c.Duplicates++
		} else {
			c.Outside++
		}
		return nil
	}

	nodes, err := hostglob.ExpandNodeList(e.NodeList)
	if err != nil {
		return c.onError(&sacct.ParseError{Line: e.String(), Kind: sacct.ErrInvalidNodeList, Reason: err.Error()})
	}
	alloc, err := sacct.ParseAllocTRES(e.AllocTRES)
	if err != nil {
		return c.onError(&sacct.ParseError{Line: e.String(), Kind: sacct.ErrInvalidResourceSpec, Reason: err.Error()})
	}
	r := &sacct.JobRecord{
		Partition: e.Partition,
		User:      e.User,
		Nodes:     nodes,
		Alloc:     alloc,
		Start:     start,
		End:       end,
	}
	if found {
		c.records[prev.index] = r
		c.seen[key] = slot{index: prev.index, open: false}
		c.Replaced++
		return nil
	}
	c.seen[key] = slot{index: len(c.records), open: e.End == 0}
	c.records = append(c.records, r)
	return nil
}

func (c *Collector) Records() []*sacct.JobRecord {
	return c.records
}
