// Application logic: fetch records for a window from a source, aggregate them, and project the
// result into a report.  This is shared by the command line verbs and the daemon.

package application

import (
	"context"
	"errors"
	"time"

	"slurmstat/report"
	"slurmstat/sacct"
	"slurmstat/usage"
)

// Request is one report query.
type Request struct {
	From  time.Time
	To    time.Time
	User  string // "" for all users
	Merge usage.MergePolicy
	Kind  report.Kind
}

// Runner runs requests against one source.  Text is nil for sources that don't produce sacct text,
// those can't serve cpu-time reports.
type Runner struct {
	Text    sacct.TextSource
	Records sacct.RecordSource
	OnError sacct.ErrorHandler
}

var ErrNoCpuTime = errors.New("The cputime report requires sacct or file input")

// NewTextRunner creates a runner for a source of sacct text.
func NewTextRunner(text sacct.TextSource, onError sacct.ErrorHandler) *Runner {
	return &Runner{Text: text, Records: sacct.TextRecords{Text: text}, OnError: onError}
}

func (r *Runner) Run(ctx context.Context, req *Request) (*report.Report, error) {
	onError := r.OnError
	if onError == nil {
		onError = sacct.SkipErrors
	}
	config := usage.Config{User: req.User, Merge: req.Merge}
	q := &sacct.Query{From: req.From, To: req.To, User: req.User}

	var res *usage.Result
	switch req.Kind {
	case report.CpuTimeKind:
		if r.Text == nil {
			return nil, ErrNoCpuTime
		}
		q.Shape = sacct.CpuTimeShape
		records, err := sacct.CpuTimeRecords(ctx, r.Text, q, onError)
		if err != nil {
			return nil, err
		}
		res = usage.AggregateCpuTime(config, records)
	default:
		q.Shape = sacct.IntervalShape
		records, err := r.Records.JobRecords(ctx, q, onError)
		if err != nil {
			return nil, err
		}
		res = usage.Aggregate(config, records)
	}

	kind := req.Kind
	if kind == "" {
		kind = report.UsageKind
	}
	return report.Project(res, kind, req.From, req.To), nil
}
