// Computation of deduplicated usage time from the intervals a user's jobs occupied a node.

package usage

import (
	"cmp"
	"fmt"
	"slices"
)

// Interval is a job's [Start, End) on one node, in seconds.  End < Start is possible in the input
// and such intervals have zero length.
type Interval struct {
	Start int64
	End   int64
}

// MergePolicy selects how the intervals of one node are combined.  The zero value is MergeArrival.
type MergePolicy int

const (
	// Walk the intervals in arrival order, counting only time past the end of the active window.
	MergeArrival MergePolicy = iota

	// Sum the raw durations, overlaps are counted every time.
	MergeNone

	// Sort the intervals and count the length of their union.  This is the exact answer but it
	// yields different numbers from MergeArrival when intervals arrive out of time order.
	MergeUnion
)

var policyNames = [...]string{"arrival", "none", "union"}

func (m MergePolicy) String() string {
	if m < MergeArrival || m > MergeUnion {
		return fmt.Sprintf("merge(%d)", int(m))
	}
	return policyNames[m]
}

func ParseMergePolicy(s string) (MergePolicy, error) {
	for i, name := range policyNames {
		if s == name {
			return MergePolicy(i), nil
		}
	}
	return MergeArrival, fmt.Errorf("Unknown merge policy %q, expected arrival, none, or union", s)
}

// Set and Type make *MergePolicy a flag value.

func (m *MergePolicy) Set(s string) error {
	p, err := ParseMergePolicy(s)
	if err != nil {
		return err
	}
	*m = p
	return nil
}

func (m *MergePolicy) Type() string {
	return "policy"
}

// Merge returns the total time covered by xs under the policy.  xs is not modified.
func (m MergePolicy) Merge(xs []Interval) int64 {
	switch m {
	case MergeNone:
		return SumDurations(xs)
	case MergeUnion:
		return UnionLength(xs)
	default:
		return MergeArrivalOrder(xs)
	}
}

func span(start, end int64) int64 {
	return max(end-start, 0)
}

// MergeArrivalOrder walks xs in the given order.  The first interval is the active window and
// counts in full.  A later interval that starts inside the active window and extends past it
// contributes only the part past the window's end, and the window is left alone.  A later interval
// that starts strictly after the window counts in full and becomes the new window.  Anything else
// contributes nothing, including an interval that starts exactly at the window's end.  Every
// contribution is clamped at zero.
//
// This is not the length of the union when intervals arrive out of time order or back to back, see
// UnionLength.

func MergeArrivalOrder(xs []Interval) int64 {
	if len(xs) == 0 {
		return 0
	}
	active := xs[0]
	total := span(active.Start, active.End)
	for _, x := range xs[1:] {
		switch {
		case x.Start < active.End && x.End > active.End:
			total += span(active.End, x.End)
		case x.Start > active.End:
			total += span(x.Start, x.End)
			active = x
		}
	}
	return total
}

// SumDurations adds up the clamped lengths of all intervals.
func SumDurations(xs []Interval) int64 {
	var total int64
	for _, x := range xs {
		total += span(x.Start, x.End)
	}
	return total
}

// UnionLength returns the length of the union of the intervals.  Empty and inverted intervals cover
// nothing.
func UnionLength(xs []Interval) int64 {
	sorted := make([]Interval, 0, len(xs))
	for _, x := range xs {
		if x.End > x.Start {
			sorted = append(sorted, x)
		}
	}
	if len(sorted) == 0 {
		return 0
	}
	slices.SortFunc(sorted, func(a, b Interval) int {
		if a.Start != b.Start {
			return cmp.Compare(a.Start, b.Start)
		}
		return cmp.Compare(a.End, b.End)
	})
	var total int64
	cur := sorted[0]
	for _, x := range sorted[1:] {
		if x.Start <= cur.End {
			cur.End = max(cur.End, x.End)
		} else {
			total += cur.End - cur.Start
			cur = x
		}
	}
	return total + (cur.End - cur.Start)
}
