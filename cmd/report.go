package cmd

import (
	"context"
	"errors"
	"io"
	"time"

	"slurmstat/application"
	"slurmstat/common"
	"slurmstat/report"
)

// ReportCommand implements the `usage` and `sru` verbs, which differ only in the report kind.
type ReportCommand struct {
	VerboseArgs
	SourceArgs
	WindowArgs
	AggregationArgs
	PrintArgs

	Kind report.Kind

	now func() time.Time
}

var _ = Command((*ReportCommand)(nil))

func NewUsageCommand() *ReportCommand {
	return &ReportCommand{Kind: report.UsageKind, now: time.Now}
}

func NewSruCommand() *ReportCommand {
	return &ReportCommand{Kind: report.CpuTimeKind, now: time.Now}
}

func (rc *ReportCommand) Summary() string {
	if rc.Kind == report.CpuTimeKind {
		return "Print per-partition, per-user cpu time, gpu time and elapsed time for a period"
	}
	return "Print per-partition, per-user node usage for a period"
}

func (rc *ReportCommand) Add(fs *CLI) {
	rc.VerboseArgs.Add(fs)
	rc.SourceArgs.Add(fs)
	rc.WindowArgs.Add(fs)
	rc.AggregationArgs.Add(fs)
	rc.PrintArgs.Add(fs)
}

func (rc *ReportCommand) Validate(rest []string) error {
	err := errors.Join(
		rc.VerboseArgs.Validate(),
		rc.SourceArgs.Validate(rest),
		rc.WindowArgs.Validate(rc.now()),
		rc.AggregationArgs.Validate(),
		rc.PrintArgs.Validate(),
	)
	if err == nil && rc.Kind == report.CpuTimeKind {
		if rc.Source != SourceSacct && rc.Source != SourceFile {
			err = application.ErrNoCpuTime
		}
	}
	return err
}

func (rc *ReportCommand) Perform(
	ctx context.Context,
	_ io.Reader,
	stdout, _ io.Writer,
) error {
	var badRecords int
	runner, release, err := rc.OpenRunner(ctx, rc.ErrorHandler(&badRecords))
	if err != nil {
		return err
	}
	defer release()

	common.Log.Infof("Reporting %s from %s to %s", rc.Kind, rc.From.Format(report.DateFormat), rc.To.Format(report.DateFormat))
	rep, err := runner.Run(ctx, &application.Request{
		From:  rc.From,
		To:    rc.To,
		User:  rc.User,
		Merge: rc.Merge,
		Kind:  rc.Kind,
	})
	if err != nil {
		return err
	}
	if badRecords > 0 {
		common.Log.Warningf("Skipped %d records that could not be parsed", badRecords)
	}
	return report.Render(stdout, rep, rc.Options())
}
