package model

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/uno-framework/uno/vars"
)

type Op string

const (
	Eq   Op = "="
	Ne   Op = "!="
	Gt   Op = ">"
	Ge   Op = ">="
	Lt   Op = "<"
	Le   Op = "<="
	Like Op = "LIKE"
	In   Op = "IN"
)

type Cond struct {
	Column string
	Op     Op
	Value  interface{}
}

// Query is a declarative filter used by Store.Select and the endpoint list
// handlers. Columns are validated against the schema; values always travel
// as placeholders.
type Query struct {
	Conds   []Cond
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

func NewQuery() *Query { return &Query{} }

func (q *Query) Where(column string, op Op, value interface{}) *Query {
	q.Conds = append(q.Conds, Cond{Column: column, Op: op, Value: value})
	return q
}

func (q *Query) Order(column string, desc bool) *Query {
	q.OrderBy, q.Desc = column, desc
	return q
}

func (q *Query) Page(limit, offset int) *Query {
	q.Limit, q.Offset = limit, offset
	return q
}

// whereSQL renders the WHERE clause with $n placeholders starting at argn+1.
func (q *Query) whereSQL(sch *Schema, argn int) (clause string, args []interface{}, err error) {
	if len(q.Conds) == 0 {
		return "", nil, nil
	}
	var parts []string
	for _, c := range q.Conds {
		if _, ok := sch.FieldByColumn(c.Column); !ok {
			return "", nil, fmt.Errorf("%w: %s has no column %q", vars.ErrInvalidField, sch.Table, c.Column)
		}
		switch c.Op {
		case Eq, Ne, Gt, Ge, Lt, Le, Like:
			argn++
			parts = append(parts, fmt.Sprintf("%s %s $%d", c.Column, c.Op, argn))
			args = append(args, c.Value)
		case In:
			rv := reflect.ValueOf(c.Value)
			if rv.Kind() != reflect.Slice || rv.Len() == 0 {
				return "", nil, fmt.Errorf("%w: IN wants a non-empty slice for %q", vars.ErrInvalidField, c.Column)
			}
			holes := make([]string, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				argn++
				holes[i] = fmt.Sprintf("$%d", argn)
				args = append(args, rv.Index(i).Interface())
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", c.Column, strings.Join(holes, ", ")))
		default:
			return "", nil, fmt.Errorf("%w: unsupported operator %q", vars.ErrInvalidField, c.Op)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (q *Query) tailSQL(sch *Schema) (string, error) {
	var b strings.Builder
	if q.OrderBy != "" {
		if _, ok := sch.FieldByColumn(q.OrderBy); !ok {
			return "", fmt.Errorf("%w: %s has no column %q", vars.ErrInvalidField, sch.Table, q.OrderBy)
		}
		b.WriteString(" ORDER BY " + q.OrderBy)
		if q.Desc {
			b.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset)
	}
	return b.String(), nil
}
