// `slurmstat` -- Summarize Slurm accounting data per partition and user
//
// Run `slurmstat help` for brief help, or `slurmstat <verb> --help` for the options of a verb.

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"slurmstat/cmd"
	"slurmstat/common"
)

// v0.1.0 - usage report from sacct
// v0.2.0 - sru verb, sonar, kafka and database sources, daemon

const SlurmstatVersion = "0.2.0"

func main() {
	if err := rootCommand().ExecuteContext(context.Background()); err != nil {
		common.Log.Error(err.Error())
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "slurmstat",
		Short:         "Summarize Slurm accounting data per partition and user",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		cmd.NewCobraCommand("usage [flags] [-- file ...]", cmd.NewUsageCommand()),
		cmd.NewCobraCommand("sru [flags] [-- file ...]", cmd.NewSruCommand()),
		cmd.NewCobraCommand("daemon [flags]", cmd.NewDaemonCommand(SlurmstatVersion)),
		cmd.NewCobraCommand("version", &cmd.VersionCommand{Version: SlurmstatVersion}),
	)
	return root
}
