package sacct

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"slurmstat/process"
)

const DateFormat = "2006-01-02"

// Query describes the records wanted from an accounting source.  From and To are calendar dates
// (UTC midnight); they are passed to sacct as -S and -E.
type Query struct {
	From  time.Time
	To    time.Time
	User  string // "" for all users
	Shape Shape
}

func (q *Query) FromDate() string {
	return q.From.Format(DateFormat)
}

func (q *Query) ToDate() string {
	return q.To.Format(DateFormat)
}

// Window returns the query bounds in the same epoch-seconds representation as JobRecord times.
func (q *Query) Window() (from, to int64) {
	return q.From.Unix(), q.To.Unix()
}

// A TextSource produces raw sacct text for a query, one record per line in the query's shape.
type TextSource interface {
	SacctText(ctx context.Context, q *Query) (string, error)
}

// A RecordSource produces JobRecords directly, in arrival order.  Records that can't be
// constructed are passed to onError.
type RecordSource interface {
	JobRecords(ctx context.Context, q *Query, onError ErrorHandler) ([]*JobRecord, error)
}

const DefaultSacctPath = "sacct"

// Command runs the sacct program.
type Command struct {
	// Program to run, DefaultSacctPath if "".
	Path string
}

var _ = TextSource((*Command)(nil))

// Arguments for sacct: allocations only (-X), no header (-n), and start and end times truncated to
// the window (-T).
func (c *Command) Arguments(q *Query) []string {
	args := []string{"-n", "-X", "-T", "-S", q.FromDate(), "-E", q.ToDate()}
	if q.User != "" {
		args = append(args, "-u", q.User)
	} else {
		args = append(args, "--allusers")
	}
	return append(args, q.Shape.FormatOption())
}

func (c *Command) SacctText(ctx context.Context, q *Query) (string, error) {
	path := c.Path
	if path == "" {
		path = DefaultSacctPath
	}
	stdout, stderr, err := process.RunSubprocess(ctx, path, c.Arguments(q))
	if err != nil {
		if msg := strings.TrimSpace(stderr); msg != "" {
			return "", fmt.Errorf("%w\n%s", err, msg)
		}
		return "", err
	}
	return stdout, nil
}

// Files reads text that was previously captured from sacct, eg by running it with the arguments
// from Command.Arguments.  The query is not applied; the files are read in order.
type Files struct {
	Names []string
}

var _ = TextSource((*Files)(nil))

func (f *Files) SacctText(_ context.Context, _ *Query) (string, error) {
	if len(f.Names) == 0 {
		return "", errors.New("No input files")
	}
	var sb strings.Builder
	for _, fn := range f.Names {
		bytes, err := os.ReadFile(fn)
		if err != nil {
			return "", err
		}
		sb.Write(bytes)
		if len(bytes) > 0 && bytes[len(bytes)-1] != '\n' {
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

// TextRecords turns a TextSource into a RecordSource for IntervalShape queries.
type TextRecords struct {
	Text TextSource
}

var _ = RecordSource(TextRecords{})

func (tr TextRecords) JobRecords(ctx context.Context, q *Query, onError ErrorHandler) ([]*JobRecord, error) {
	if q.Shape != IntervalShape {
		return nil, fmt.Errorf("Job records require the %s shape, not %s", IntervalShape, q.Shape)
	}
	text, err := tr.Text.SacctText(ctx, q)
	if err != nil {
		return nil, err
	}
	return ScanJobRecords(strings.NewReader(text), onError)
}

// CpuTimeRecords fetches and parses CpuTimeShape text.
func CpuTimeRecords(ctx context.Context, src TextSource, q *Query, onError ErrorHandler) ([]*CpuTimeRecord, error) {
	if q.Shape != CpuTimeShape {
		return nil, fmt.Errorf("CPU time records require the %s shape, not %s", CpuTimeShape, q.Shape)
	}
	text, err := src.SacctText(ctx, q)
	if err != nil {
		return nil, err
	}
	return ScanCpuTimeRecords(strings.NewReader(text), onError)
}

// ClipToWindow emulates `sacct -T` for sources that deliver untruncated times: the times are
// clamped to [from, to].  ok is false if the interval lies entirely outside the window.  Intervals
// with end < start are left for the consumer to deal with.
func ClipToWindow(start, end, from, to int64) (s, e int64, ok bool) {
	if end < start {
		return start, end, start >= from && start <= to
	}
	if end < from || start > to {
		return 0, 0, false
	}
	return max(start, from), min(end, to), true
}
