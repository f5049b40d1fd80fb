package sacct

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAllocTRES extracts the allocated cpu, gpu and node counts from an AllocTRES string, eg
//
//   billing=16,cpu=16,gres/gpu:a100=2,gres/gpu=2,mem=64G,node=1
//
// The tokens are unordered.  cpu and node are required.  The GPU count is taken from gres/gpu (or
// plain gpu) if present; otherwise the per-model gres/gpu:model counts are summed; a job with no
// GPU request has zero GPUs.  Other keys are ignored.

func ParseAllocTRES(s string) (Alloc, error) {
	var alloc Alloc
	var haveCpu, haveNode, haveGpu bool
	var modelGpus int64
	for _, tok := range strings.Split(s, ",") {
		key, val, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		switch {
		case key == "cpu":
			n, err := parseCount(val)
			if err != nil {
				return Alloc{}, fmtError(ErrInvalidResourceSpec, "Bad cpu count %q", val)
			}
			alloc.CPUs, haveCpu = n, true
		case key == "node":
			n, err := parseCount(val)
			if err != nil {
				return Alloc{}, fmtError(ErrInvalidResourceSpec, "Bad node count %q", val)
			}
			alloc.Nodes, haveNode = n, true
		case key == "gres/gpu" || key == "gpu":
			// Not a hard error, a strange gpu value is treated like no gpu request.
			if n, err := parseCount(val); err == nil {
				alloc.GPUs, haveGpu = n, true
			}
		case strings.HasPrefix(key, "gres/gpu:"):
			if n, err := parseCount(val); err == nil {
				modelGpus += n
			}
		}
	}
	if !haveCpu {
		return Alloc{}, fmtError(ErrInvalidResourceSpec, "No cpu count in %q", s)
	}
	if !haveNode {
		return Alloc{}, fmtError(ErrInvalidResourceSpec, "No node count in %q", s)
	}
	if !haveGpu {
		alloc.GPUs = modelGpus
	}
	return alloc, nil
}

func parseCount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("Negative count %d", n)
	}
	return n, nil
}

func fmtError(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
