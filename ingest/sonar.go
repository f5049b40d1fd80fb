// Job records from Sonar's "jobs" documents, read from files or from the Kafka broker that Sonar
// sends them to.

package ingest

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/NordicHPC/sonar/util/formats/newfmt"

	"slurmstat/sacct"
	"slurmstat/slurmlog"
)

// Files is a RecordSource for files holding Sonar jobs documents, a stream of JSON objects.
type Files struct {
	Names []string
}

var _ = sacct.RecordSource((*Files)(nil))

func (f *Files) JobRecords(
	ctx context.Context,
	q *sacct.Query,
	onError sacct.ErrorHandler,
) ([]*sacct.JobRecord, error) {
	c := slurmlog.NewCollector(q, onError)
	for _, fn := range f.Names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		input, err := os.Open(fn)
		if err != nil {
			return nil, err
		}
		_, err = ConsumeJobs(input, c)
		input.Close()
		if err != nil {
			return nil, err
		}
	}
	return c.Records(), nil
}

// ConsumeJobs decodes jobs documents from input and adds the jobs in them to c.  Documents that
// carry errors instead of data are counted and skipped.

func ConsumeJobs(input io.Reader, c *slurmlog.Collector) (softErrors int, err error) {
	var handlerErr error
	err = newfmt.ConsumeJSONJobs(input, false, func(r *newfmt.JobsEnvelope) {
		if handlerErr != nil {
			return
		}
		if r.Errors != nil || r.Data == nil {
			softErrors++
			return
		}
		handlerErr = addJobs(r, c)
	})
	if err == nil {
		err = handlerErr
	}
	return
}

func addJobs(r *newfmt.JobsEnvelope, c *slurmlog.Collector) error {
	for i := range r.Data.Attributes.SlurmJobs {
		job := &r.Data.Attributes.SlurmJobs[i]
		allocTRES := job.AllocTRES
		if allocTRES == "" && job.Sacct != nil {
			allocTRES = job.Sacct.AllocTRES
		}
		err := c.Add(&slurmlog.Entry{
			JobID:     uint64(job.JobID),
			JobStep:   job.JobStep,
			Partition: job.Partition,
			User:      job.UserName,
			NodeList:  joinRanges(job.NodeList),
			AllocTRES: allocTRES,
			Start:     parseTime(string(job.Start)),
			End:       parseTime(string(job.End)),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func joinRanges(ranges []newfmt.HostnameRange) string {
	names := make([]string, len(ranges))
	for i, r := range ranges {
		names[i] = string(r)
	}
	return strings.Join(names, ",")
}

// Zero for absent or unparseable times
func parseTime(s string) int64 {
	if s == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0
	}
	return t.Unix()
}
