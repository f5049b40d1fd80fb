package common

import (
	"testing"
	"time"
)

var now = time.Date(2024, 3, 15, 13, 45, 10, 0, time.UTC)

func TestLastMonth(t *testing.T) {
	from, to := LastMonth(now)
	if from.Format("2006-01-02") != "2024-02-01" || to.Format("2006-01-02") != "2024-02-29" {
		t.Fatalf("LastMonth #1: %v %v", from, to)
	}
	// January rolls back into the previous year
	from, to = LastMonth(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if from.Format("2006-01-02") != "2023-12-01" || to.Format("2006-01-02") != "2023-12-31" {
		t.Fatalf("LastMonth #2: %v %v", from, to)
	}
}

func TestParseRelativeDate(t *testing.T) {
	for _, c := range []struct{ in, want string }{
		{"2024-01-05", "2024-01-05"},
		{"3d", "2024-03-12"},
		{"0d", "2024-03-15"},
		{"2w", "2024-03-01"},
		{"2023-09-31", "2023-10-01"},
	} {
		d, err := ParseRelativeDate(now, c.in)
		if err != nil {
			t.Fatalf("Date %s: %v", c.in, err)
		}
		if d.Format(time.RFC3339) != c.want+"T00:00:00Z" {
			t.Fatalf("Date %s: %v", c.in, d)
		}
	}
	for _, bad := range []string{"", "yesterday", "2024-1-5", "-3d", "3m"} {
		if _, err := ParseRelativeDate(now, bad); err == nil {
			t.Fatalf("Should fail: %s", bad)
		}
	}
}

func TestResolveWindow(t *testing.T) {
	from, to, err := ResolveWindow(now, "", "")
	if err != nil || from.Day() != 1 || to.Day() != 29 {
		t.Fatalf("Window #1: %v %v %v", from, to, err)
	}
	from, to, err = ResolveWindow(now, "2024-03-01", "1d")
	if err != nil || from.Day() != 1 || to.Day() != 14 || to.Month() != 3 {
		t.Fatalf("Window #2: %v %v %v", from, to, err)
	}
	_, _, err = ResolveWindow(now, "1d", "2d")
	if err == nil || err.Error() != "The --from time is greater than the --to time" {
		t.Fatalf("Window #3: inverted window accepted: %v", err)
	}
	_, _, err = ResolveWindow(now, "bad", "")
	if err == nil || err.Error() != "Invalid --from argument bad" {
		t.Fatalf("Window #4: bad date accepted: %v", err)
	}
	_, _, err = ResolveWindow(now, "", "2x")
	if err == nil || err.Error() != "Invalid --to argument 2x" {
		t.Fatalf("Window #5: bad date accepted: %v", err)
	}
}
