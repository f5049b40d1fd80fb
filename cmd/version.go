package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
)

type VersionCommand struct {
	Version string
}

var _ = Command((*VersionCommand)(nil))

func (vc *VersionCommand) Summary() string {
	return "Print the program version"
}

func (vc *VersionCommand) Add(fs *CLI) {
}

func (vc *VersionCommand) Validate(rest []string) error {
	if len(rest) > 0 {
		return errors.New("version takes no arguments")
	}
	return nil
}

func (vc *VersionCommand) Perform(_ context.Context, _ io.Reader, stdout, _ io.Writer) error {
	_, err := fmt.Fprintf(stdout, "slurmstat v%s\n", vc.Version)
	return err
}
