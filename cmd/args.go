package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"slurmstat/application"
	"slurmstat/common"
	"slurmstat/db"
	"slurmstat/ingest"
	"slurmstat/report"
	"slurmstat/sacct"
	"slurmstat/status"
	"slurmstat/usage"
)

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// You wouldn't think -v would be so complicated.

type VerboseArgs struct {
	Verbose bool
	Debug   bool
}

func (va *VerboseArgs) Add(fs *CLI) {
	fs.Group("development")
	fs.BoolVar(&va.Verbose, "verbose", "v", false, "Print verbose diagnostics to stderr")
	fs.BoolVar(&va.Debug, "debug", "", false, "Print debugging diagnostics to stderr")
}

func (va *VerboseArgs) Validate() error {
	if va.Debug {
		common.Log.LowerLevelTo(status.LogLevelDebug)
	} else if va.Verbose {
		common.Log.LowerLevelTo(status.LogLevelInfo)
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// SourceArgs select where the accounting records come from.  The defaults file can provide all of
// them except the input files.

const (
	SourceSacct       = "sacct"
	SourceFile        = "file"
	SourceSonarJSON   = "sonar-json"
	SourceKafka       = "kafka"
	SourceTimescaleDB = "timescaledb"
)

var (
	// MT: Constant after initialization; immutable
	knownSources = []string{SourceSacct, SourceFile, SourceSonarJSON, SourceKafka, SourceTimescaleDB}
)

type SourceArgs struct {
	Source      string
	SacctPath   string
	Cluster     string
	DatabaseURI string
	KafkaBroker string
	Files       []string
}

func (s *SourceArgs) Add(fs *CLI) {
	fs.Group("data-source")
	fs.StringVar(&s.Source, "source", "", "",
		"Read records from `kind`, one of "+strings.Join(knownSources, ", ")+" [default: sacct]")
	fs.StringVar(&s.SacctPath, "sacct", "", "",
		"Run this `program` for --source sacct [default: sacct on the PATH]")
	fs.StringVar(&s.Cluster, "cluster", "", "",
		"Select the cluster `name` for --source kafka and --source timescaledb")
	fs.StringVar(&s.DatabaseURI, "database-uri", "", "",
		"Connect to this database `uri` for --source timescaledb")
	fs.StringVar(&s.KafkaBroker, "kafka-broker", "", "",
		"Connect to this broker `host:port` for --source kafka")
}

// Validate applies the defaults and checks that the options needed by the source are present.  The
// files, if any, are the non-option arguments.
func (s *SourceArgs) Validate(rest []string) error {
	common.ApplyDefault(&s.Source, common.DataSourceSource)
	common.ApplyDefault(&s.SacctPath, common.DataSourceSacct)
	common.ApplyDefault(&s.Cluster, common.DataSourceCluster)
	common.ApplyDefault(&s.DatabaseURI, common.DataSourceDatabaseURI)
	common.ApplyDefault(&s.KafkaBroker, common.DataSourceKafkaBroker)
	if s.Source == "" {
		s.Source = SourceSacct
	}
	s.Files = rest

	var err error
	if !slices.Contains(knownSources, s.Source) {
		return fmt.Errorf("Unknown --source %s, expected one of %s", s.Source, strings.Join(knownSources, ", "))
	}
	switch s.Source {
	case SourceFile, SourceSonarJSON:
		if len(s.Files) == 0 {
			err = errors.Join(err, fmt.Errorf("--source %s requires at least one input file", s.Source))
		}
	default:
		if len(s.Files) > 0 {
			err = errors.Join(err, fmt.Errorf("Input files are not used with --source %s", s.Source))
		}
	}
	switch s.Source {
	case SourceKafka:
		if s.KafkaBroker == "" {
			err = errors.Join(err, errors.New("--source kafka requires --kafka-broker"))
		}
		if s.Cluster == "" {
			err = errors.Join(err, errors.New("--source kafka requires --cluster"))
		}
	case SourceTimescaleDB:
		if s.DatabaseURI == "" {
			err = errors.Join(err, errors.New("--source timescaledb requires --database-uri"))
		}
		if s.Cluster == "" {
			err = errors.Join(err, errors.New("--source timescaledb requires --cluster"))
		}
	}
	return err
}

// OpenRunner connects to the source.  The returned function releases the source and must be called
// when the runner is no longer used.
func (s *SourceArgs) OpenRunner(
	ctx context.Context,
	onError sacct.ErrorHandler,
) (*application.Runner, func(), error) {
	nothing := func() {}
	switch s.Source {
	case SourceFile:
		return application.NewTextRunner(&sacct.Files{Names: s.Files}, onError), nothing, nil
	case SourceSonarJSON:
		return &application.Runner{Records: &ingest.Files{Names: s.Files}, OnError: onError}, nothing, nil
	case SourceKafka:
		src := &ingest.Kafka{Broker: s.KafkaBroker, Cluster: s.Cluster}
		return &application.Runner{Records: src, OnError: onError}, nothing, nil
	case SourceTimescaleDB:
		ts, err := db.OpenTimescale(ctx, s.DatabaseURI, s.Cluster)
		if err != nil {
			return nil, nil, fmt.Errorf("Failed to open database: %w", err)
		}
		closer := func() {
			if err := ts.Close(context.Background()); err != nil {
				common.Log.Warningf("Closing database: %v", err)
			}
		}
		return &application.Runner{Records: ts, OnError: onError}, closer, nil
	default:
		return application.NewTextRunner(&sacct.Command{Path: s.SacctPath}, onError), nothing, nil
	}
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// WindowArgs select the reporting window and the user.

type WindowArgs struct {
	FromStr string
	ToStr   string
	User    string

	From time.Time
	To   time.Time
}

func (w *WindowArgs) Add(fs *CLI) {
	fs.Group("record-filter")
	fs.StringVar(&w.FromStr, "from", "f", "",
		"Select records by this `time` and later.  Format can be YYYY-MM-DD, or Nd or Nw\n"+
			"signifying N days or weeks ago [default: first day of last month]")
	fs.StringVar(&w.ToStr, "to", "t", "",
		"Select records by this `time` and earlier.  Format can be YYYY-MM-DD, or Nd or Nw\n"+
			"signifying N days or weeks ago [default: last day of last month]")
	fs.StringVar(&w.User, "user", "u", "",
		"Select records for this `user` only [default: all users]")
}

func (w *WindowArgs) Validate(now time.Time) (err error) {
	w.From, w.To, err = common.ResolveWindow(now, w.FromStr, w.ToStr)
	return
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// AggregationArgs select the merge policy and how bad records are handled.

type AggregationArgs struct {
	Merge  usage.MergePolicy
	Strict bool

	mergeStr string
}

func (a *AggregationArgs) Add(fs *CLI) {
	fs.Group("aggregation")
	fs.StringVar(&a.mergeStr, "merge", "", "",
		"Merge each node's job intervals with `policy`, one of arrival, none, union [default: arrival]")
	fs.BoolVar(&a.Strict, "strict", "", false, "Stop at the first record that can't be parsed")
}

func (a *AggregationArgs) Validate() error {
	common.ApplyDefault(&a.mergeStr, common.ReportMerge)
	if a.mergeStr == "" {
		return nil
	}
	var err error
	a.Merge, err = usage.ParseMergePolicy(a.mergeStr)
	return err
}

// ErrorHandler returns the policy for bad records: abort with --strict, otherwise drop and count
// them, logging each at the info level.  The count is valid after the run.
func (a *AggregationArgs) ErrorHandler(count *int) sacct.ErrorHandler {
	if a.Strict {
		return sacct.AbortOnError
	}
	return sacct.CountErrors(count, func(e *sacct.ParseError) {
		common.Log.Info(e.Error())
	})
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// PrintArgs select the output format.

type PrintArgs struct {
	Format report.Format
	Color  bool

	fmtStr string
}

func (p *PrintArgs) Add(fs *CLI) {
	fs.Group("printing")
	fs.StringVar(&p.fmtStr, "fmt", "", "",
		"Print the report in `format`, one of fixed, csv, json, yaml, awk [default: fixed]")
	fs.BoolVar(&p.Color, "color", "", false, "Highlight partition headings in fixed format")
}

func (p *PrintArgs) Validate() error {
	common.ApplyDefault(&p.fmtStr, common.ReportFormat)
	if p.fmtStr == "" {
		return nil
	}
	var err error
	p.Format, err = report.ParseFormat(p.fmtStr)
	return err
}

func (p *PrintArgs) Options() report.Options {
	return report.Options{Format: p.Format, Color: p.Color}
}
