package model

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uno-framework/uno/vars"
)

func articleSchema(t *testing.T) *Schema {
	t.Helper()
	sch, err := SchemaOf(&Article{})
	require.NoError(t, err)
	return sch
}

func TestWhereSQL(t *testing.T) {
	sch := articleSchema(t)

	clause, args, err := NewQuery().
		Where("title", Like, "go%").
		Where("views", Ge, 10).
		whereSQL(sch, 0)
	require.NoError(t, err)
	require.Equal(t, " WHERE title LIKE $1 AND views >= $2", clause)
	require.Equal(t, []interface{}{"go%", 10}, args)
}

func TestWhereSQLIn(t *testing.T) {
	sch := articleSchema(t)

	clause, args, err := NewQuery().
		Where("id", In, []string{"a", "b", "c"}).
		whereSQL(sch, 0)
	require.NoError(t, err)
	require.Equal(t, " WHERE id IN ($1, $2, $3)", clause)
	require.Len(t, args, 3)

	_, _, err = NewQuery().Where("id", In, []string{}).whereSQL(sch, 0)
	require.ErrorIs(t, err, vars.ErrInvalidField)
}

func TestWhereSQLRejectsUnknownColumn(t *testing.T) {
	sch := articleSchema(t)

	_, _, err := NewQuery().Where("title; DROP TABLE article", Eq, "x").whereSQL(sch, 0)
	require.ErrorIs(t, err, vars.ErrInvalidField)
}

func TestTailSQL(t *testing.T) {
	sch := articleSchema(t)

	tail, err := NewQuery().Order("views", true).Page(10, 20).tailSQL(sch)
	require.NoError(t, err)
	require.Equal(t, " ORDER BY views DESC LIMIT 10 OFFSET 20", tail)

	_, err = NewQuery().Order("nope", false).tailSQL(sch)
	require.ErrorIs(t, err, vars.ErrInvalidField)

	tail, err = NewQuery().tailSQL(sch)
	require.NoError(t, err)
	require.Empty(t, tail)
}
