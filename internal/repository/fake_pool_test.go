package repository

import (
	"context"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type call struct {
	sql  string
	args []any
}

// fakePool hands out queued results in call order.
type fakePool struct {
	execs    []call
	queries  []call
	rows     []*fakeRows
	row      *fakeRow
	batches  []*pgx.Batch
	execErr  error
	batchErr error
}

func (f *fakePool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, call{sql, args})
	return pgconn.NewCommandTag("OK"), f.execErr
}

func (f *fakePool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, call{sql, args})
	if len(f.rows) == 0 {
		return &fakeRows{}, nil
	}
	r := f.rows[0]
	f.rows = f.rows[1:]
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	return r, nil
}

func (f *fakePool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, call{sql, args})
	if f.row == nil {
		return &fakeRow{err: pgx.ErrNoRows}
	}
	return f.row
}

func (f *fakePool) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batches = append(f.batches, b)
	return &fakeBatch{err: f.batchErr}
}

type fakeRows struct {
	data     [][]any
	idx      int
	err      error
	queryErr error
	closed   bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.idx-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(r.data[r.idx-1], dest)
}

type fakeRow struct {
	values []any
	err    error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.values, dest)
}

type fakeBatch struct {
	err error
}

func (b *fakeBatch) Exec() (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("INSERT 0 1"), b.err
}
func (b *fakeBatch) Query() (pgx.Rows, error) { return &fakeRows{}, b.err }
func (b *fakeBatch) QueryRow() pgx.Row        { return &fakeRow{err: b.err} }
func (b *fakeBatch) Close() error             { return nil }

// assign copies values into scan destinations, allocating for pointer
// destinations such as **time.Time.
func assign(values []any, dest []any) error {
	for i, d := range dest {
		dv := reflect.ValueOf(d).Elem()
		if values[i] == nil {
			dv.Set(reflect.Zero(dv.Type()))
			continue
		}
		v := reflect.ValueOf(values[i])
		if dv.Kind() == reflect.Pointer && v.Type() == dv.Type().Elem() {
			p := reflect.New(v.Type())
			p.Elem().Set(v)
			dv.Set(p)
			continue
		}
		dv.Set(v.Convert(dv.Type()))
	}
	return nil
}
