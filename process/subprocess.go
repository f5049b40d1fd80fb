// Abstractions for running subprocesses and capturing their output.

package process

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Run the program with the arguments, collecting its output and returning it.  If there is an error
// in running the program or the program exits with a nonzero code then an error is returned along
// with stderr and stdout is empty, otherwise stdout and stderr are returned.  The program is killed
// if ctx is cancelled before it completes.

func RunSubprocess(ctx context.Context, programPath string, arguments []string) (string, string, error) {
	cmd := exec.CommandContext(ctx, programPath, arguments...)
	var stdout strings.Builder
	var stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	errs := stderr.String()
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return "", errs, errors.Join(fmt.Errorf("While running %s", programPath), err)
	}
	return stdout.String(), errs, nil
}
