package cmd

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/pflag"
)

// CLI wraps the flag set of a verb so that options can be tagged with the logical group they belong
// to.  When help is printed, the options in the same group are presented together.
type CLI struct {
	*pflag.FlagSet
	currentGroup   string
	groupForOption map[string]string // option -> group name
}

var (
	// MT: Constant after initialization; immutable
	//
	// All known groups *must* be here but there can be repeated sort values
	priority = map[string]int{
		"daemon-configuration": 1,
		"aggregation":          2,
		"printing":             3,
		"record-filter":        4,
		"data-source":          5,
		"development":          6,
	}
)

func NewCLI(fs *pflag.FlagSet) *CLI {
	return &CLI{
		FlagSet:        fs,
		groupForOption: make(map[string]string),
	}
}

// Call Group to tag subsequent options with the logical group they belong to.

func (cli *CLI) Group(name string) {
	if _, found := priority[name]; !found {
		panic(fmt.Sprintf("Unknown group %s", name))
	}
	cli.currentGroup = name
}

func (cli *CLI) BoolVar(v *bool, name, short string, def bool, usage string) {
	cli.tag(name)
	cli.FlagSet.BoolVarP(v, name, short, def, usage)
}

func (cli *CLI) IntVar(v *int, name, short string, def int, usage string) {
	cli.tag(name)
	cli.FlagSet.IntVarP(v, name, short, def, usage)
}

func (cli *CLI) StringVar(v *string, name, short string, def string, usage string) {
	cli.tag(name)
	cli.FlagSet.StringVarP(v, name, short, def, usage)
}

func (cli *CLI) DurationVar(v *time.Duration, name, short string, def time.Duration, usage string) {
	cli.tag(name)
	cli.FlagSet.DurationVarP(v, name, short, def, usage)
}

func (cli *CLI) Var(value pflag.Value, name, short string, usage string) {
	cli.tag(name)
	cli.FlagSet.VarP(value, name, short, usage)
}

func (cli *CLI) tag(option string) {
	if cli.currentGroup == "" {
		panic(fmt.Sprintf("No option group set when registering option %s", option))
	}
	if cli.groupForOption[option] != "" {
		panic(fmt.Sprintf("Multiple groups for option %s: %s and %s",
			option, cli.groupForOption[option], cli.currentGroup))
	}
	cli.groupForOption[option] = cli.currentGroup
}

// PrintGroupedDefaults prints the options group by group, in priority order.  Options not
// registered through the CLI (eg cobra's own --help) go last, under "other".

func (cli *CLI) PrintGroupedDefaults(out io.Writer) {
	groups := make(map[string]*pflag.FlagSet)
	cli.FlagSet.VisitAll(func(f *pflag.Flag) {
		group := cli.groupForOption[f.Name]
		if group == "" {
			group = "other"
		}
		fs := groups[group]
		if fs == nil {
			fs = pflag.NewFlagSet(group, pflag.ContinueOnError)
			fs.SortFlags = false
			groups[group] = fs
		}
		fs.AddFlag(f)
	})
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		aPri, bPri := groupPriority(a), groupPriority(b)
		if aPri == bPri {
			return cmp.Compare(a, b)
		}
		return aPri - bPri
	})
	for _, name := range names {
		fmt.Fprintf(out, "\n%s options:\n\n", name)
		fmt.Fprint(out, groups[name].FlagUsages())
	}
}

func groupPriority(name string) int {
	if p, found := priority[name]; found {
		return p
	}
	return 100
}
