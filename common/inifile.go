package common

import (
	"errors"
	"io"
	"os"
	"path"

	ini "github.com/lars-t-hansen/ini"
)

// The defaults file, ~/.slurmstat, provides values for options that are not given on the command
// line, eg
//
//   [data-source]
//   source=timescaledb
//   cluster=fox.educloud.no
//   database-uri=postgres://reader@db.example.org/slurm
//
//   [report]
//   format=csv

// MT: Constant after initialization
var (
	p                     = ini.NewParser()
	store                 *ini.Store
	dataSource            = p.AddSection("data-source")
	DataSourceSource      = dataSource.AddString("source")
	DataSourceSacct       = dataSource.AddString("sacct")
	DataSourceCluster     = dataSource.AddString("cluster")
	DataSourceDatabaseURI = dataSource.AddString("database-uri")
	DataSourceKafkaBroker = dataSource.AddString("kafka-broker")
	reportSection         = p.AddSection("report")
	ReportFormat          = reportSection.AddString("format")
	ReportMerge           = reportSection.AddString("merge")
)

const DefaultsFileName = ".slurmstat"

func init() {
	home := os.Getenv("HOME")
	if home == "" {
		return
	}
	fn := path.Join(path.Clean(home), DefaultsFileName)
	input, err := os.Open(fn)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			Log.Errorf("Error in trying to open %s: %s", fn, err.Error())
		}
		return
	}
	defer input.Close()
	if err := LoadDefaults(input); err != nil {
		Log.Errorf("Error in trying to parse %s: %s", fn, err.Error())
	}
}

// LoadDefaults replaces the current defaults with those read from input.  It is not thread-safe and
// should only be called during startup.
func LoadDefaults(input io.Reader) error {
	s, err := p.Parse(input)
	if err != nil {
		return err
	}
	store = s
	return nil
}

func HasDefault(f *ini.Field) bool {
	return store != nil && f.Present(store)
}

// If *sp is "" and f has a value in the defaults file, set *sp to that value with environment
// variables expanded and return true.
func ApplyDefault(sp *string, f *ini.Field) bool {
	if *sp != "" || store == nil || !f.Present(store) {
		return false
	}
	*sp = os.ExpandEnv(f.StringVal(store))
	return true
}
