package common

import (
	"slurmstat/status"
)

// MT: Constant after initialization; thread-safe
var Log = status.New("slurmstat")

func init() {
	// Warnings are about the data, eg records that were dropped, and the user should see them.
	Log.SetLevel(status.LogLevelWarning)
}
