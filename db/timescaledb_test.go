package db

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slurmstat/sacct"
)

func TestJoinNodes(t *testing.T) {
	assert.Equal(t, "c[1-2],gpu3", joinNodes([]string{"c[1-2]", "gpu3"}))
	assert.Equal(t, "", joinNodes([]string{"None assigned"}))
	assert.Equal(t, "c1", joinNodes([]string{"", "c1", "None assigned"}))
	assert.Equal(t, "", joinNodes(nil))
}

func TestJobQuery(t *testing.T) {
	q := jobQuery(false)
	assert.True(t, strings.HasPrefix(q, "SELECT \"AllocTRES\", end_time,"))
	assert.NotContains(t, q, "$4")
	assert.True(t, strings.HasSuffix(q, "ORDER BY t1.time, t1.job_id, t1.job_step"))
	assert.Contains(t, jobQuery(true), "user_name=$4")

	// One box per field
	assert.Equal(t, 8, len(strings.Split(sacctFields, ",")))
}

// fakeConn behaves like a *pgx.Conn in that it is busy from Query until the rows are closed.
type fakeConn struct {
	busy atomic.Bool
	rows [][]any
}

var errConnBusy = errors.New("conn busy")

func (fc *fakeConn) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	if fc.busy.Swap(true) {
		return nil, errConnBusy
	}
	return &fakeRows{conn: fc, rows: fc.rows, at: -1}, nil
}

func (fc *fakeConn) Close(context.Context) error {
	return nil
}

type fakeRows struct {
	conn *fakeConn
	rows [][]any
	at   int
}

func (fr *fakeRows) Close() {
	fr.conn.busy.Store(false)
}

func (fr *fakeRows) Err() error                                   { return nil }
func (fr *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (fr *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (fr *fakeRows) Values() ([]any, error)                       { return fr.rows[fr.at], nil }
func (fr *fakeRows) RawValues() [][]byte                          { return nil }
func (fr *fakeRows) Conn() *pgx.Conn                              { return nil }

func (fr *fakeRows) Next() bool {
	// Slow enough for concurrent queries to overlap
	time.Sleep(time.Millisecond)
	fr.at++
	return fr.at < len(fr.rows)
}

func (fr *fakeRows) Scan(dest ...any) error {
	for i, d := range dest {
		switch d := d.(type) {
		case *string:
			*d = fr.rows[fr.at][i].(string)
		case *[]string:
			*d = fr.rows[fr.at][i].([]string)
		case *pgtype.Int8:
			*d = fr.rows[fr.at][i].(pgtype.Int8)
		case *pgtype.Timestamptz:
			*d = fr.rows[fr.at][i].(pgtype.Timestamptz)
		default:
			return errors.New("Unknown box type")
		}
	}
	return nil
}

func ts(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func testRows() [][]any {
	jan2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	// AllocTRES, end_time, job_id, job_step, nodes, partition, start_time, user_name
	return [][]any{
		{"cpu=4,node=1", pgtype.Timestamptz{}, pgtype.Int8{Int64: 7, Valid: true}, "", []string{"c1"}, "normal", ts(jan2), "alice"},
		{"cpu=4,node=1", pgtype.Timestamptz{}, pgtype.Int8{Int64: 7, Valid: true}, "batch", []string{"c1"}, "", ts(jan2), ""},
		{"cpu=4,node=1", ts(jan2.Add(time.Hour)), pgtype.Int8{Int64: 7, Valid: true}, "", []string{"c1"}, "normal", ts(jan2), "alice"},
		{"cpu=2,node=2", ts(jan2.Add(time.Hour)), pgtype.Int8{Int64: 8, Valid: true}, "", []string{"None assigned"}, "normal", pgtype.Timestamptz{}, "bob"},
	}
}

func testQuery() *sacct.Query {
	return &sacct.Query{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestJobRecords(t *testing.T) {
	db := &Timescale{connection: &fakeConn{rows: testRows()}, cluster: "fox"}
	rs, err := db.JobRecords(context.Background(), testQuery(), sacct.AbortOnError)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "alice", rs[0].User)
	assert.Equal(t, []string{"c1"}, rs[0].Nodes)
	assert.Equal(t, int64(3600), rs[0].End-rs[0].Start)
}

func TestConcurrentJobRecords(t *testing.T) {
	db := &Timescale{connection: &fakeConn{rows: testRows()}, cluster: "fox"}
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = db.JobRecords(context.Background(), testQuery(), sacct.AbortOnError)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}
