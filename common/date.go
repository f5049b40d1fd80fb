package common

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Parse a date string and return the start of that day in the UTC time zone.  The format is one of
//
//  YYYY-MM-DD
//  Nd (days ago)
//  Nw (weeks ago)
//
// NOTE: we're opting in to the Go semantics here: the nonexistent yyyy-09-31 is silently
// reinterpreted as yyyy-10-01.

func ParseRelativeDate(now time.Time, s string) (time.Time, error) {
	now = now.UTC()
	if m := daysRe.FindStringSubmatch(s); m != nil {
		days, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			return now, errors.New("Bad time specification")
		}
		return ThisDay(now.AddDate(0, 0, -int(days))), nil
	}

	if m := weeksRe.FindStringSubmatch(s); m != nil {
		weeks, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			return now, errors.New("Bad time specification")
		}
		return ThisDay(now.AddDate(0, 0, -int(weeks)*7)), nil
	}

	if m := dateRe.FindStringSubmatch(s); m != nil {
		yyyy, _ := strconv.ParseUint(m[1], 10, 32)
		mm, _ := strconv.ParseUint(m[2], 10, 32)
		dd, _ := strconv.ParseUint(m[3], 10, 32)
		return time.Date(int(yyyy), time.Month(mm), int(dd), 0, 0, 0, 0, time.UTC), nil
	}

	return now, errors.New("Bad time specification")
}

// t should be UTC, the result is always UTC
func ThisDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LastMonth returns the first and last days of the calendar month before the one containing now.
func LastMonth(now time.Time) (from, to time.Time) {
	now = now.UTC()
	firstOfThis := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to = firstOfThis.AddDate(0, 0, -1)
	from = time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	return
}

// ResolveWindow interprets the --from and --to arguments; either or both may be "", in which case the
// value comes from LastMonth.
func ResolveWindow(now time.Time, fromStr, toStr string) (from, to time.Time, err error) {
	from, to = LastMonth(now)
	if fromStr != "" {
		from, err = ParseRelativeDate(now, fromStr)
		if err != nil {
			return from, to, fmt.Errorf("Invalid --from argument %s", fromStr)
		}
	}
	if toStr != "" {
		to, err = ParseRelativeDate(now, toStr)
		if err != nil {
			return from, to, fmt.Errorf("Invalid --to argument %s", toStr)
		}
	}
	if from.After(to) {
		return from, to, errors.New("The --from time is greater than the --to time")
	}
	return from, to, nil
}

var dateRe = regexp.MustCompile(`^(\d\d\d\d)-(\d\d)-(\d\d)$`)
var daysRe = regexp.MustCompile(`^(\d+)d$`)
var weeksRe = regexp.MustCompile(`^(\d+)w$`)
