package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/NordicHPC/sonar/util/formats/newfmt"
	"github.com/twmb/franz-go/pkg/kgo"

	"slurmstat/common"
	"slurmstat/sacct"
	"slurmstat/slurmlog"
)

const DefaultIdleTimeout = 5 * time.Second

// Kafka is a RecordSource that reads the <cluster>.job topic from the beginning until no more
// records arrive within IdleTimeout.  No consumer group is used, so nothing is committed and every
// query sees the whole topic.
type Kafka struct {
	Broker      string
	Cluster     string
	IdleTimeout time.Duration // DefaultIdleTimeout if zero
}

var _ = sacct.RecordSource((*Kafka)(nil))

func (k *Kafka) Topic() string {
	return k.Cluster + "." + string(newfmt.DataTagJobs)
}

func (k *Kafka) JobRecords(
	ctx context.Context,
	q *sacct.Query,
	onError sacct.ErrorHandler,
) ([]*sacct.JobRecord, error) {
	if k.Broker == "" || k.Cluster == "" {
		return nil, errors.New("The kafka source requires a broker and a cluster name")
	}
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(k.Broker),
		kgo.ConsumeTopics(k.Topic()),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, err
	}
	defer cl.Close()

	idle := k.IdleTimeout
	if idle == 0 {
		idle = DefaultIdleTimeout
	}
	c := slurmlog.NewCollector(q, onError)
	var received, dropped int
	for {
		pollCtx, cancel := context.WithTimeout(ctx, idle)
		fetches := cl.PollFetches(pollCtx)
		cancel()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if fetches.IsClientClosed() {
			break
		}
		for _, fe := range fetches.Errors() {
			if errors.Is(fe.Err, context.DeadlineExceeded) {
				continue
			}
			// All errors are retried internally when fetching, but non-retriable errors are
			// returned from polls so that users can notice and take action.
			common.Log.Warningf("%s: Failed to fetch data: %v", k.Topic(), fe.Err)
		}
		if fetches.NumRecords() == 0 {
			break
		}
		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			received++
			info := new(newfmt.JobsEnvelope)
			if err := json.Unmarshal(record.Value, info); err != nil {
				common.Log.Debugf("%s: Bad record at offset %d: %v", k.Topic(), record.Offset, err)
				dropped++
				continue
			}
			if info.Errors != nil || info.Data == nil {
				dropped++
				continue
			}
			if err := addJobs(info, c); err != nil {
				return nil, err
			}
		}
	}
	common.Log.Infof("%s: %d documents received, %d dropped, %d duplicate records",
		k.Topic(), received, dropped, c.Duplicates)
	return c.Records(), nil
}
