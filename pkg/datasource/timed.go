package datasource

import (
	"context"

	"github.com/harunnryd/calltime/pkg/intercept"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Timed forwards every DataSource call to the wrapped value and reports its
// duration under the method's name.
type Timed struct {
	ds DataSource
	ic *intercept.Interceptor
}

var _ DataSource = (*Timed)(nil)

// WrapDataSource returns ds wrapped with ic. A value that is already wrapped is
// returned as is, so wrapping twice never doubles the observations.
func WrapDataSource(ds DataSource, ic *intercept.Interceptor) DataSource {
	if t, ok := ds.(*Timed); ok {
		return t
	}
	if ic == nil {
		ic = intercept.New()
	}
	return &Timed{ds: ds, ic: ic}
}

// Wrap is the decorator used by container hooks: values implementing
// DataSource come back wrapped, everything else comes back untouched.
func Wrap(obj any, ic *intercept.Interceptor) any {
	ds, ok := obj.(DataSource)
	if !ok || ds == nil {
		return obj
	}
	return WrapDataSource(ds, ic)
}

// Unwrap returns the underlying handle.
func (t *Timed) Unwrap() DataSource { return t.ds }

func (t *Timed) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return intercept.Call(t.ic, "Exec", func() (pgconn.CommandTag, error) {
		return t.ds.Exec(ctx, sql, arguments...)
	})
}

func (t *Timed) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return intercept.Call(t.ic, "Query", func() (pgx.Rows, error) {
		return t.ds.Query(ctx, sql, args...)
	})
}

// QueryRow is timed up to the point the row is handed back; scan errors
// surface later through the returned row.
func (t *Timed) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	var row pgx.Row
	intercept.Do(t.ic, "QueryRow", func() {
		row = t.ds.QueryRow(ctx, sql, args...)
	})
	return row
}

func (t *Timed) Begin(ctx context.Context) (pgx.Tx, error) {
	return intercept.Call(t.ic, "Begin", func() (pgx.Tx, error) {
		return t.ds.Begin(ctx)
	})
}

func (t *Timed) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	var br pgx.BatchResults
	intercept.Do(t.ic, "SendBatch", func() {
		br = t.ds.SendBatch(ctx, b)
	})
	return br
}

func (t *Timed) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return intercept.Call(t.ic, "CopyFrom", func() (int64, error) {
		return t.ds.CopyFrom(ctx, tableName, columnNames, rowSrc)
	})
}

func (t *Timed) Ping(ctx context.Context) error {
	return t.ic.Observe("Ping", func() error {
		return t.ds.Ping(ctx)
	})
}

func (t *Timed) Close() {
	intercept.Do(t.ic, "Close", t.ds.Close)
}
