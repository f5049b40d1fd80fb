// Parsing of `sacct -n -X` text output.
//
// Each line has exactly one whitespace-separated token per requested field, see Shape.  Lines
// containing NoneAssigned belong to jobs that never got any nodes (cancelled while pending); they
// are excluded before parsing and are not errors.  Blank lines are ignored.

package sacct

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"slurmstat/hostglob"
)

const (
	NoneAssigned = "None assigned"

	// sacct prints local time without a zone.  No zone and no fractions are accepted.
	TimestampFormat = "2006-01-02T15:04:05"
)

// Excluded is true for lines that are dropped before parsing.
func Excluded(line string) bool {
	return strings.TrimSpace(line) == "" || strings.Contains(line, NoneAssigned)
}

// ParseJobLine parses one IntervalShape line.  The error, if any, is a *ParseError.
func ParseJobLine(line string) (*JobRecord, error) {
	r, perr := parseJobLine(line)
	if perr != nil {
		return nil, perr
	}
	return r, nil
}

// ParseCpuTimeLine parses one CpuTimeShape line.  The error, if any, is a *ParseError.
func ParseCpuTimeLine(line string) (*CpuTimeRecord, error) {
	r, perr := parseCpuTimeLine(line)
	if perr != nil {
		return nil, perr
	}
	return r, nil
}

func parseJobLine(line string) (*JobRecord, *ParseError) {
	fields, perr := tokenize(line, IntervalShape)
	if perr != nil {
		return nil, perr
	}
	nodes, perr := parseNodes(line, fields[2])
	if perr != nil {
		return nil, perr
	}
	alloc, perr := parseAlloc(line, fields[3])
	if perr != nil {
		return nil, perr
	}
	start, perr := parseTimestamp(line, fields[4])
	if perr != nil {
		return nil, perr
	}
	end, perr := parseTimestamp(line, fields[5])
	if perr != nil {
		return nil, perr
	}
	return &JobRecord{
		Partition: fields[0],
		User:      fields[1],
		Nodes:     nodes,
		Alloc:     alloc,
		Start:     start,
		End:       end,
	}, nil
}

func parseCpuTimeLine(line string) (*CpuTimeRecord, *ParseError) {
	fields, perr := tokenize(line, CpuTimeShape)
	if perr != nil {
		return nil, perr
	}
	nodes, perr := parseNodes(line, fields[0])
	if perr != nil {
		return nil, perr
	}
	alloc, perr := parseAlloc(line, fields[3])
	if perr != nil {
		return nil, perr
	}
	cputime, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil || cputime < 0 {
		return nil, newParseError(line, ErrMalformedRecord, "Bad cputimeraw %q", fields[4])
	}
	return &CpuTimeRecord{
		Partition:  fields[1],
		User:       fields[2],
		Nodes:      nodes,
		Alloc:      alloc,
		CpuTimeRaw: cputime,
	}, nil
}

func tokenize(line string, shape Shape) ([]string, *ParseError) {
	fields := strings.Fields(line)
	if want := len(shape.Fields()); len(fields) != want {
		return nil, newParseError(line, ErrMalformedRecord, "Expected %d fields, got %d", want, len(fields))
	}
	return fields, nil
}

func parseNodes(line, s string) ([]string, *ParseError) {
	nodes, err := hostglob.ExpandNodeList(s)
	if err != nil {
		return nil, &ParseError{Line: line, Kind: ErrInvalidNodeList, Reason: err.Error()}
	}
	return nodes, nil
}

func parseAlloc(line, s string) (Alloc, *ParseError) {
	alloc, err := ParseAllocTRES(s)
	if err != nil {
		return Alloc{}, &ParseError{Line: line, Kind: ErrInvalidResourceSpec, Reason: err.Error()}
	}
	return alloc, nil
}

func parseTimestamp(line, s string) (int64, *ParseError) {
	t, err := ParseTimestamp(s)
	if err != nil {
		return 0, &ParseError{Line: line, Kind: ErrMalformedTimestamp, Reason: err.Error()}
	}
	return t, nil
}

// ParseTimestamp reads a TimestampFormat value and returns the wall clock time as seconds since
// the epoch, read as if it were UTC.

func ParseTimestamp(s string) (int64, error) {
	if len(s) != len(TimestampFormat) {
		return 0, fmtError(ErrMalformedTimestamp, "%q is not YYYY-MM-DDTHH:MM:SS", s)
	}
	t, err := time.ParseInLocation(TimestampFormat, s, time.UTC)
	if err != nil {
		return 0, fmtError(ErrMalformedTimestamp, "%q is not YYYY-MM-DDTHH:MM:SS", s)
	}
	return t.Unix(), nil
}

// ScanJobRecords parses IntervalShape text, one record per line, in order.  Bad records are
// passed to onError; if it returns an error the scan stops with that error.

func ScanJobRecords(input io.Reader, onError ErrorHandler) ([]*JobRecord, error) {
	records := make([]*JobRecord, 0)
	err := scanLines(input, func(line string) error {
		r, perr := parseJobLine(line)
		if perr != nil {
			return onError(perr)
		}
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ScanCpuTimeRecords is ScanJobRecords for CpuTimeShape text.

func ScanCpuTimeRecords(input io.Reader, onError ErrorHandler) ([]*CpuTimeRecord, error) {
	records := make([]*CpuTimeRecord, 0)
	err := scanLines(input, func(line string) error {
		r, perr := parseCpuTimeLine(line)
		if perr != nil {
			return onError(perr)
		}
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func scanLines(input io.Reader, each func(line string) error) error {
	scan := bufio.NewScanner(input)
	scan.Buffer(make([]byte, 64*1024), 1024*1024)
	for scan.Scan() {
		line := scan.Text()
		if Excluded(line) {
			continue
		}
		if err := each(line); err != nil {
			return err
		}
	}
	return scan.Err()
}
