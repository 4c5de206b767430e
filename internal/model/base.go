package model

import (
	"context"
	"database/sql"
	stderrors "errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/R3E-Network/model_layer/internal/errors"
	"github.com/R3E-Network/model_layer/internal/identity"
	"github.com/R3E-Network/model_layer/internal/model/filter"
	"github.com/R3E-Network/model_layer/internal/model/schema"
)

// Audit columns filled by the executors when the entity declares them.
const (
	colCID   = "cid"
	colCTime = "ctime"
	colMID   = "mid"
	colMTime = "mtime"
)

// Create inserts the present fields of data and returns the generated id.
func Create[C any](ctx context.Context, c identity.Ctx, mm *Manager, desc *schema.Descriptor, data C) (int64, error) {
	names, values, err := present(desc, data)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	names, values = stamp(desc, names, values, colCID, c.UserID())
	names, values = stamp(desc, names, values, colCTime, now)
	names, values = stamp(desc, names, values, colMID, c.UserID())
	names, values = stamp(desc, names, values, colMTime, now)

	var sb strings.Builder
	sb.WriteString("INSERT INTO " + schema.Quote(desc.Table))
	if len(names) == 0 {
		sb.WriteString(" DEFAULT VALUES")
	} else {
		sb.WriteString(" (" + quoteAll(names) + ") VALUES (" + placeholders(1, len(names)) + ")")
	}
	sb.WriteString(" RETURNING " + schema.Quote(desc.PrimaryKey))

	conn, err := mm.conn(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	var id int64
	if err := conn.QueryRowxContext(ctx, sb.String(), values...).Scan(&id); err != nil {
		return 0, errors.StoreFailure(err)
	}
	return id, nil
}

// Get fetches the row with the given id into E.
func Get[E any](ctx context.Context, _ identity.Ctx, mm *Manager, desc *schema.Descriptor, id int64) (E, error) {
	var out E
	cols, err := selectColumns[E](desc)
	if err != nil {
		return out, err
	}
	query := "SELECT " + cols + " FROM " + schema.Quote(desc.Table) +
		" WHERE " + schema.Quote(desc.PrimaryKey) + " = $1"

	conn, err := mm.conn(ctx)
	if err != nil {
		return out, err
	}
	defer conn.Close()

	if err := conn.GetContext(ctx, &out, query, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return out, errors.EntityNotFound(desc.Entity(), id)
		}
		return out, errors.StoreFailure(err)
	}
	return out, nil
}

// List returns the rows matching filters, ordered and paginated by opts.
// No match yields an empty, non-nil slice.
func List[E any](ctx context.Context, _ identity.Ctx, mm *Manager, desc *schema.Descriptor, filters []filter.Group, opts *filter.ListOptions) ([]E, error) {
	cols, err := selectColumns[E](desc)
	if err != nil {
		return nil, err
	}
	where, err := filter.Compile(desc, filters, 1)
	if err != nil {
		return nil, err
	}
	tail, err := opts.Compile(desc)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + cols + " FROM " + schema.Quote(desc.Table)
	if !where.Empty() {
		query += " WHERE " + where.SQL
	}
	query += tail

	conn, err := mm.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	out := make([]E, 0)
	if err := conn.SelectContext(ctx, &out, query, where.Args...); err != nil {
		return nil, errors.StoreFailure(err)
	}
	if out == nil {
		out = make([]E, 0)
	}
	return out, nil
}

// First returns the first row matching filters, or nil when none does.
func First[E any](ctx context.Context, c identity.Ctx, mm *Manager, desc *schema.Descriptor, filters []filter.Group, opts *filter.ListOptions) (*E, error) {
	one := int64(1)
	limited := filter.ListOptions{Limit: &one}
	if opts != nil {
		limited.OrderBys = opts.OrderBys
		limited.Offset = opts.Offset
	}
	rows, err := List[E](ctx, c, mm, desc, filters, &limited)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// Update writes the present fields of data to the row with the given id.
// A record with no present field only checks that the row exists.
func Update[U any](ctx context.Context, c identity.Ctx, mm *Manager, desc *schema.Descriptor, id int64, data U) error {
	names, values, err := present(desc, data)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return exists(ctx, mm, desc, id)
	}
	names, values = stamp(desc, names, values, colMID, c.UserID())
	names, values = stamp(desc, names, values, colMTime, time.Now().UTC())

	sets := make([]string, len(names))
	for i, n := range names {
		sets[i] = schema.Quote(n) + " = $" + strconv.Itoa(i+1)
	}
	query := "UPDATE " + schema.Quote(desc.Table) + " SET " + strings.Join(sets, ", ") +
		" WHERE " + schema.Quote(desc.PrimaryKey) + " = $" + strconv.Itoa(len(names)+1)

	return execOne(ctx, mm, desc, id, query, append(values, id)...)
}

// Delete removes the row with the given id.
func Delete(ctx context.Context, _ identity.Ctx, mm *Manager, desc *schema.Descriptor, id int64) error {
	query := "DELETE FROM " + schema.Quote(desc.Table) + " WHERE " + schema.Quote(desc.PrimaryKey) + " = $1"
	return execOne(ctx, mm, desc, id, query, id)
}

// execOne runs a statement addressed to one row and maps zero affected rows
// to EntityNotFound.
func execOne(ctx context.Context, mm *Manager, desc *schema.Descriptor, id int64, query string, args ...any) error {
	conn, err := mm.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	result, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.StoreFailure(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.StoreFailure(err)
	}
	if n == 0 {
		return errors.EntityNotFound(desc.Entity(), id)
	}
	return nil
}

func exists(ctx context.Context, mm *Manager, desc *schema.Descriptor, id int64) error {
	query := "SELECT 1 FROM " + schema.Quote(desc.Table) + " WHERE " + schema.Quote(desc.PrimaryKey) + " = $1"

	conn, err := mm.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	var one int
	if err := conn.QueryRowxContext(ctx, query, id).Scan(&one); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.EntityNotFound(desc.Entity(), id)
		}
		return errors.StoreFailure(err)
	}
	return nil
}

// present extracts the written fields of a partial record and checks them
// against desc. The primary key is never written.
func present(desc *schema.Descriptor, data any) ([]string, []any, error) {
	names, values, err := schema.Present(data)
	if err != nil {
		return nil, nil, errors.ParamDecodeFailure("invalid record", err)
	}
	for _, n := range names {
		if !desc.HasField(n) {
			return nil, nil, errors.SchemaViolation(desc.Entity(), n, "unknown field")
		}
		if n == desc.PrimaryKey {
			return nil, nil, errors.SchemaViolation(desc.Entity(), n, "primary key is not writable")
		}
	}
	return names, values, nil
}

// stamp appends an audit column unless the entity lacks it or the record
// already sets it.
func stamp(desc *schema.Descriptor, names []string, values []any, col string, v any) ([]string, []any) {
	if !desc.HasField(col) {
		return names, values
	}
	for _, n := range names {
		if n == col {
			return names, values
		}
	}
	return append(names, col), append(values, v)
}

// selectColumns renders the column list of read shape E, which must be a
// subset of desc.
func selectColumns[E any](desc *schema.Descriptor) (string, error) {
	cols, err := schema.Columns(reflect.TypeOf((*E)(nil)).Elem())
	if err != nil {
		return "", errors.SchemaViolation(desc.Entity(), "*", err.Error())
	}
	for _, c := range cols {
		if !desc.HasField(c) {
			return "", errors.SchemaViolation(desc.Entity(), c, "unknown field")
		}
	}
	return quoteAll(cols), nil
}

func quoteAll(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = schema.Quote(n)
	}
	return strings.Join(q, ", ")
}

func placeholders(start, n int) string {
	p := make([]string, n)
	for i := range p {
		p[i] = "$" + strconv.Itoa(start+i)
	}
	return strings.Join(p, ", ")
}
