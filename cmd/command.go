package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// A Command is one verb of the program.  Add registers its options, Validate checks them after
// parsing and receives the non-option arguments, and Perform runs the verb.
type Command interface {
	Summary() string
	Add(fs *CLI)
	Validate(rest []string) error
	Perform(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error
}

// NewCobraCommand wraps c as a cobra command named use.  The options are registered through a CLI
// so that help groups them, and the command's context is passed to Perform.
func NewCobraCommand(use string, c Command) *cobra.Command {
	cc := &cobra.Command{
		Use:           use,
		Short:         c.Summary(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cli := NewCLI(cc.Flags())
	c.Add(cli)
	cc.SetUsageFunc(func(cc *cobra.Command) error {
		out := cc.OutOrStderr()
		cc.Printf("Usage:\n  %s\n\n%s\n", cc.UseLine(), c.Summary())
		cli.PrintGroupedDefaults(out)
		return nil
	})
	cc.RunE = func(cc *cobra.Command, args []string) error {
		if err := c.Validate(args); err != nil {
			cc.Usage()
			return err
		}
		return c.Perform(cc.Context(), cc.InOrStdin(), cc.OutOrStdout(), cc.ErrOrStderr())
	}
	return cc
}
