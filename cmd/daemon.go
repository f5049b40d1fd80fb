package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"slurmstat/common"
	"slurmstat/daemon"
	"slurmstat/process"
	"slurmstat/sacct"
)

const DefaultPort = 8087

// DaemonCommand implements the `daemon` verb.
type DaemonCommand struct {
	VerboseArgs
	SourceArgs
	Port    int
	Syslog  bool
	Version string
}

var _ = Command((*DaemonCommand)(nil))

func NewDaemonCommand(version string) *DaemonCommand {
	return &DaemonCommand{Version: version}
}

func (dc *DaemonCommand) Summary() string {
	return "Serve usage reports over HTTP and export usage metrics for Prometheus"
}

func (dc *DaemonCommand) Add(fs *CLI) {
	dc.VerboseArgs.Add(fs)
	dc.SourceArgs.Add(fs)
	fs.Group("daemon-configuration")
	fs.IntVar(&dc.Port, "port", "", DefaultPort, "Listen on this `port`")
	fs.BoolVar(&dc.Syslog, "syslog", "", false, "Log to syslog in addition to stderr")
}

func (dc *DaemonCommand) Validate(rest []string) error {
	err := errors.Join(
		dc.VerboseArgs.Validate(),
		dc.SourceArgs.Validate(rest),
	)
	if dc.Port <= 0 || dc.Port > 65535 {
		err = errors.Join(err, fmt.Errorf("Invalid --port %d", dc.Port))
	}
	return err
}

func (dc *DaemonCommand) Perform(ctx context.Context, _ io.Reader, _, _ io.Writer) error {
	if dc.Syslog {
		if err := common.Log.StartSyslog("slurmstat"); err != nil {
			return err
		}
	}
	ctx, stop := process.StopContext(ctx)
	defer stop()

	// Bad records are logged and dropped, one request must not fail because of another's data.
	onError := func(e *sacct.ParseError) error {
		common.Log.Warning(e.Error())
		return nil
	}
	runner, release, err := dc.OpenRunner(ctx, onError)
	if err != nil {
		return err
	}
	defer release()

	common.Log.Infof("Reading records from %s", dc.Source)
	return daemon.New(dc.Port, dc.Version, runner).Run(ctx)
}
