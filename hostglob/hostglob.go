// Expansion of Slurm node lists.
//
// sacct prints the nodes allocated to a job in a compressed form.  The following grammar pertains:
//
//   node-list   ::= pattern ("," pattern)*
//   pattern     ::= prefix index | prefix "[" range-elt ("," range-elt)* "]"
//   prefix      ::= <nonempty string of a..z and A..Z>
//   index       ::= number
//   range-elt   ::= number | number "-" number
//   number      ::= <nonempty string of 0..9, to be interpreted as decimal>
//
// The following rules apply:
//
// - In a range A-B, A must be no greater than B or the list is invalid
// - The names produced from a range A-B are zero-padded to the width of the literal A, so
//   "n[007-012]" yields n007, ..., n012, while "n[7-12]" yields n7, ..., n12
// - A single number, in brackets or not, is used literally, it is never re-padded
// - Names are produced in the order they appear in the list, they are never sorted
//
// Note: sacct only uses the "," separator between patterns when a job spans nodes with different
// prefixes, eg "c[1-2],gpu3".

package hostglob

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrInvalidNodeList = errors.New("Invalid node list")

// Upper bound on the number of names a single range may produce.
const maxRangeSize = 1 << 20

func nodeListError(s, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidNodeList, s, reason)
}

// ExpandNodeList expands a <node-list> into the names it denotes, in order.  The error, if any,
// satisfies errors.Is(err, ErrInvalidNodeList).

func ExpandNodeList(s string) ([]string, error) {
	patterns, err := SplitMultiPattern(s)
	if err != nil {
		return nil, nodeListError(s, err.Error())
	}
	if len(patterns) == 0 {
		return nil, nodeListError(s, "Empty node list")
	}
	nodes := make([]string, 0, len(patterns))
	for _, p := range patterns {
		xs, err := ExpandPattern(p)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, xs...)
	}
	return nodes, nil
}

// This takes a <node-list> according to the grammar above and returns a list of individual
// <pattern>s in that list.  It requires a bit of logic because each pattern may contain a range
// that contains a comma.

func SplitMultiPattern(s string) ([]string, error) {
	patterns := make([]string, 0)
	if s == "" {
		return patterns, nil
	}
	insideBrackets := false
	start := -1
	for ix, c := range s {
		if c == '[' {
			if insideBrackets {
				return nil, errors.New("Illegal pattern: nested brackets")
			}
			insideBrackets = true
		} else if c == ']' {
			if !insideBrackets {
				return nil, errors.New("Illegal pattern: unmatched end bracket")
			}
			insideBrackets = false
		} else if c == ',' && !insideBrackets {
			if start == -1 {
				return nil, errors.New("Illegal pattern: Empty node name")
			}
			patterns = append(patterns, s[start:ix])
			start = -1
			continue
		}
		if start == -1 {
			start = ix
		}
	}
	if insideBrackets {
		return nil, errors.New("Illegal pattern: Missing end bracket")
	}
	if start == -1 {
		return nil, errors.New("Illegal pattern: Empty node name")
	}
	patterns = append(patterns, s[start:])
	return patterns, nil
}

// This takes a single <pattern> from the grammar above and expands it.

func ExpandPattern(s string) ([]string, error) {
	r := strings.NewReader(s)
	prefix := readWhile(r, isAlpha)
	if prefix == "" {
		return nil, nodeListError(s, "Expected alphabetic prefix")
	}
	var nodes []string
	if eatc(r, '[') {
		var reason string
		nodes, reason = parseRanges(r, prefix)
		if reason != "" {
			return nil, nodeListError(s, reason)
		}
	} else {
		index := readWhile(r, isDigit)
		if index == "" {
			return nil, nodeListError(s, "Expected number")
		}
		nodes = []string{prefix + index}
	}
	if getc(r) != 0 {
		return nil, nodeListError(s, "Unexpected character")
	}
	return nodes, nil
}

// The opening bracket has been consumed.  On error, the second return value is the reason.

func parseRanges(r io.RuneScanner, prefix string) ([]string, string) {
	nodes := []string{}
	for {
		lo := readWhile(r, isDigit)
		if lo == "" {
			return nil, "Expected number"
		}
		if eatc(r, '-') {
			hi := readWhile(r, isDigit)
			if hi == "" {
				return nil, "Expected number"
			}
			n, err1 := strconv.Atoi(lo)
			m, err2 := strconv.Atoi(hi)
			if err1 != nil || err2 != nil {
				return nil, "Number out of range"
			}
			if n > m {
				return nil, "Bad range"
			}
			if m-n >= maxRangeSize {
				return nil, "Range too large"
			}
			width := len(lo)
			for ; n <= m; n++ {
				nodes = append(nodes, fmt.Sprintf("%s%0*d", prefix, width, n))
			}
		} else {
			nodes = append(nodes, prefix+lo)
		}
		if eatc(r, ',') {
			continue
		}
		if eatc(r, ']') {
			return nodes, ""
		}
		if getc(r) == 0 {
			return nil, "Missing end bracket"
		}
		return nil, "Unexpected character"
	}
}

func isAlpha(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func readWhile(r io.RuneScanner, pred func(rune) bool) string {
	var sb strings.Builder
	for {
		c := getc(r)
		if c == 0 || !pred(c) {
			ungetc(r, c)
			break
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

func eatc(r io.RuneScanner, x rune) bool {
	c := getc(r)
	if c == x {
		return true
	}
	ungetc(r, c)
	return false
}

func getc(r io.RuneScanner) rune {
	c, _, err := r.ReadRune()
	if err == io.EOF {
		return 0
	}
	return c
}

func ungetc(r io.RuneScanner, c rune) {
	if c != 0 {
		r.UnreadRune()
	}
}
