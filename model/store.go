package model

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/uno-framework/uno/ulog"
	"github.com/uno-framework/uno/vars"
)

// Store executes schema-driven CRUD against postgres.
type Store struct {
	DB *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) Insert(ctx context.Context, sch *Schema, v interface{}) error {
	rv, err := structValue(sch, v)
	if err != nil {
		return err
	}
	cols := sch.Columns()
	holes := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, f := range sch.Fields {
		holes[i] = fmt.Sprintf("$%d", i+1)
		args[i] = rv.Field(f.Index).Interface()
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", sch.Table, strings.Join(cols, ", "), strings.Join(holes, ", "))
	_, err = s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		ulog.Error().Err(err).Str("table", sch.Table).Msg("insert failed")
	}
	return vars.Wrap(vars.CodeModel, "insert", err)
}

func (s *Store) Update(ctx context.Context, sch *Schema, v interface{}) error {
	rv, err := structValue(sch, v)
	if err != nil {
		return err
	}
	var (
		sets []string
		args []interface{}
	)
	for _, f := range sch.Fields {
		if f.IsPK {
			continue
		}
		args = append(args, rv.Field(f.Index).Interface())
		sets = append(sets, fmt.Sprintf("%s = $%d", f.Column, len(args)))
	}
	args = append(args, rv.Field(sch.PK.Index).Interface())
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d", sch.Table, strings.Join(sets, ", "), sch.PK.Column, len(args))
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return vars.Wrap(vars.CodeModel, "update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return vars.Wrap(vars.CodeModel, "update", vars.ErrNotFound)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, sch *Schema, pk interface{}) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", sch.Table, sch.PK.Column)
	res, err := s.DB.ExecContext(ctx, query, pk)
	if err != nil {
		return vars.Wrap(vars.CodeModel, "delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return vars.Wrap(vars.CodeModel, "delete", vars.ErrNotFound)
	}
	return nil
}

// Get loads the row with the given primary key into dest (pointer to the
// schema's struct type).
func (s *Store) Get(ctx context.Context, sch *Schema, pk interface{}, dest interface{}) error {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 LIMIT 1", strings.Join(sch.Columns(), ", "), sch.Table, sch.PK.Column)
	row := s.DB.QueryRowContext(ctx, query, pk)
	if err := scanInto(sch, row, dest); err != nil {
		if err == sql.ErrNoRows {
			return vars.Wrap(vars.CodeModel, "get", vars.ErrNotFound)
		}
		return vars.Wrap(vars.CodeModel, "get", err)
	}
	return nil
}

// Select runs q and appends matching rows to dest, a *[]T for the schema's
// struct type T.
func (s *Store) Select(ctx context.Context, sch *Schema, q *Query, dest interface{}) error {
	where, args, err := q.whereSQL(sch, 0)
	if err != nil {
		return vars.Wrap(vars.CodeModel, "select", err)
	}
	tail, err := q.tailSQL(sch)
	if err != nil {
		return vars.Wrap(vars.CodeModel, "select", err)
	}
	query := fmt.Sprintf("SELECT %s FROM %s%s%s", strings.Join(sch.Columns(), ", "), sch.Table, where, tail)
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return vars.Wrap(vars.CodeModel, "select", err)
	}
	defer rows.Close()

	slicePtr := reflect.ValueOf(dest)
	if slicePtr.Kind() != reflect.Ptr || slicePtr.Elem().Kind() != reflect.Slice {
		return vars.Wrap(vars.CodeModel, "select", fmt.Errorf("dest must be a pointer to slice"))
	}
	sliceVal := slicePtr.Elem()
	for rows.Next() {
		item := reflect.New(sch.Type)
		if err := scanInto(sch, rows, item.Interface()); err != nil {
			return vars.Wrap(vars.CodeModel, "select", err)
		}
		sliceVal.Set(reflect.Append(sliceVal, item.Elem()))
	}
	return vars.Wrap(vars.CodeModel, "select", rows.Err())
}

func (s *Store) Count(ctx context.Context, sch *Schema, q *Query) (n int64, err error) {
	where, args, err := q.whereSQL(sch, 0)
	if err != nil {
		return 0, vars.Wrap(vars.CodeModel, "count", err)
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", sch.Table, where)
	err = s.DB.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, vars.Wrap(vars.CodeModel, "count", err)
}

// CreateTable runs the schema's bootstrap DDL; meant for dev and tests.
func (s *Store) CreateTable(ctx context.Context, sch *Schema) error {
	_, err := s.DB.ExecContext(ctx, sch.CreateTableSQL())
	return vars.Wrap(vars.CodeModel, "createTable", err)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInto(sch *Schema, row rowScanner, dest interface{}) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.Elem().Type() != sch.Type {
		return fmt.Errorf("dest must be *%s", sch.Type.String())
	}
	rv = rv.Elem()
	targets := make([]interface{}, len(sch.Fields))
	for i, f := range sch.Fields {
		targets[i] = rv.Field(f.Index).Addr().Interface()
	}
	return row.Scan(targets...)
}

func structValue(sch *Schema, v interface{}) (rv reflect.Value, err error) {
	rv = reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Type() != sch.Type {
		return rv, vars.Wrap(vars.CodeModel, "bind", fmt.Errorf("value is %s, schema maps %s", rv.Type(), sch.Type))
	}
	return rv, nil
}
