package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uno-framework/uno/vars"
)

type Article struct {
	ID        string `uno:"id,pk"`
	Title     string
	ViewCount int64  `uno:"views"`
	Secret    string `uno:"-"`
	CreatedAt time.Time
}

type legacyUser struct {
	ID string `uno:"id,pk"`
}

func (legacyUser) TableName() string { return "accounts" }

type noKey struct {
	Name string
}

func TestSchemaOf(t *testing.T) {
	sch, err := SchemaOf(&Article{})
	require.NoError(t, err)
	require.Equal(t, "article", sch.Table)
	require.Equal(t, "id", sch.PK.Column)
	require.Equal(t, []string{"id", "title", "views", "created_at"}, sch.Columns())

	_, ok := sch.FieldByColumn("secret")
	require.False(t, ok, "uno:\"-\" fields must not map")

	f, ok := sch.FieldByColumn("views")
	require.True(t, ok)
	require.Equal(t, "ViewCount", f.Name)
}

func TestSchemaOfTableNamer(t *testing.T) {
	sch, err := SchemaOf(&legacyUser{})
	require.NoError(t, err)
	require.Equal(t, "accounts", sch.Table)
}

func TestSchemaOfErrors(t *testing.T) {
	_, err := SchemaOf(&noKey{})
	require.ErrorIs(t, err, vars.ErrNoPrimaryKey)

	_, err = SchemaOf("not a struct")
	require.Error(t, err)
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"Article":    "article",
		"UserRole":   "user_role",
		"ID":         "id",
		"HTTPServer": "httpserver",
		"ViewCount":  "view_count",
	}
	for in, want := range cases {
		require.Equal(t, want, snakeCase(in), in)
	}
}

func TestCreateTableSQL(t *testing.T) {
	sch, err := SchemaOf(&Article{})
	require.NoError(t, err)
	sql := sch.CreateTableSQL()
	require.Contains(t, sql, "CREATE TABLE IF NOT EXISTS article")
	require.Contains(t, sql, "id TEXT PRIMARY KEY")
	require.Contains(t, sql, "views BIGINT")
	require.Contains(t, sql, "created_at TIMESTAMP WITH TIME ZONE")
}
