// This is a reader-only interface to the slurm-monitor timescaledb, used as a source of job
// records.  Ingestion into the database is handled by slurm-monitor.
//
// The database holds the sacct data sampled over time, one row per job step per sample, so the rows
// go through the same main-record selection and deduplication as Sonar's jobs documents.

package db

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"slurmstat/sacct"
	"slurmstat/slurmlog"
)

// The part of *pgx.Conn that is used here.
type conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close(ctx context.Context) error
}

// Timescale is a RecordSource for one cluster in the database.
type Timescale struct {
	// The connection is not thread-safe and is busy until the rows of a query have been read.  Use
	// the forEachRow method to perform a query safely, it holds a mutex until the rows are drained.
	connection conn
	lock       sync.Mutex
	cluster    string
}

var _ = sacct.RecordSource((*Timescale)(nil))

func OpenTimescale(ctx context.Context, databaseURI, cluster string) (*Timescale, error) {
	if cluster == "" {
		return nil, fmt.Errorf("The database source requires a cluster name")
	}
	connection, err := pgx.Connect(ctx, databaseURI)
	if err != nil {
		return nil, fmt.Errorf("Unable to connect to database: %w", err)
	}
	return &Timescale{connection: connection, cluster: cluster}, nil
}

func (ts *Timescale) Close(ctx context.Context) error {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	return ts.connection.Close(ctx)
}

// The join brings in AllocTRES, which is only in the accounting table.
const sacctTable = "sample_slurm_job as t1 join sample_slurm_job_acc as t2 on " +
	"t1.cluster = t2.cluster and " +
	"t1.job_id = t2.job_id and " +
	"t1.job_step = t2.job_step and " +
	"t1.time = t2.time"

// KEEP THE FIELDS IN SYNC WITH THE BOXES IN JobRecords.
const sacctFields = "\"AllocTRES\", end_time, t1.job_id, t1.job_step, nodes, partition, start_time, user_name"

// Rows come in sample order so that records are seen in arrival order.  The time condition selects
// jobs that overlap the window, rows with no end time are jobs that were running when sampled.
func jobQuery(userFilter bool) string {
	q := "SELECT " + sacctFields + " FROM " + sacctTable +
		" WHERE t1.cluster=$1 AND start_time < $3 AND (end_time IS NULL OR end_time >= $2)"
	if userFilter {
		q += " AND user_name=$4"
	}
	return q + " ORDER BY t1.time, t1.job_id, t1.job_step"
}

func (ts *Timescale) JobRecords(
	ctx context.Context,
	q *sacct.Query,
	onError sacct.ErrorHandler,
) ([]*sacct.JobRecord, error) {
	var (
		allocTRES, jobStep, partition, userName string
		nodes                                   []string
		jobId                                   pgtype.Int8
		endTime, startTime                      pgtype.Timestamptz
	)
	boxes := []any{&allocTRES, &endTime, &jobId, &jobStep, &nodes, &partition, &startTime, &userName}

	args := []any{ts.cluster, q.From, q.To}
	if q.User != "" {
		args = append(args, q.User)
	}
	c := slurmlog.NewCollector(q, onError)
	err := ts.forEachRow(ctx, jobQuery(q.User != ""), args, boxes, func() error {
		e := &slurmlog.Entry{
			JobID:     uint64(jobId.Int64),
			JobStep:   jobStep,
			Partition: partition,
			User:      userName,
			NodeList:  joinNodes(nodes),
			AllocTRES: allocTRES,
		}
		// Handle nullable fields
		if startTime.Valid {
			e.Start = startTime.Time.UTC().Unix()
		}
		if endTime.Valid {
			e.End = endTime.Time.UTC().Unix()
		}
		return c.Add(e)
	})
	if err != nil {
		return nil, err
	}
	return c.Records(), nil
}

func (ts *Timescale) forEachRow(ctx context.Context, q string, args, boxes []any, fn func() error) error {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	rows, err := ts.connection.Query(ctx, q, args...)
	if err != nil {
		return err
	}
	_, err = pgx.ForEachRow(rows, boxes, fn)
	return err
}

// https://github.com/NordicHPC/sonar/issues/471 - "None assigned" is stored as a node name for jobs
// that never got nodes.  A job with only that has no nodes.
func joinNodes(nodes []string) string {
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n != sacct.NoneAssigned && n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, ",")
}
