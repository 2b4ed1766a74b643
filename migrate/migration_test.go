package migrate

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
	"github.com/uno-framework/uno/vars"
)

func TestParseUpAndDown(t *testing.T) {
	m, err := parse(1, "create_users", `CREATE TABLE users (id TEXT PRIMARY KEY);

-- DOWN
DROP TABLE users;`)
	require.NoError(t, err)
	require.Equal(t, "CREATE TABLE users (id TEXT PRIMARY KEY);", m.Up)
	require.Equal(t, "DROP TABLE users;", m.Down)
}

func TestParseWithoutDown(t *testing.T) {
	m, err := parse(2, "seed", "INSERT INTO users (id) VALUES ('admin');")
	require.NoError(t, err)
	require.Empty(t, m.Down)
}

func TestParseDownMarkerIsLineAnchored(t *testing.T) {
	m, err := parse(3, "comments", `CREATE TABLE c (note TEXT); -- down the road
-- DOWN
DROP TABLE c;`)
	require.NoError(t, err)
	require.Contains(t, m.Up, "down the road")
	require.Equal(t, "DROP TABLE c;", m.Down)
}

func TestParseDepends(t *testing.T) {
	m, err := parse(7, "fk", `-- depends: 3, 5
ALTER TABLE a ADD COLUMN b_id TEXT;`)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 5}, m.Depends)

	_, err = parse(8, "bad", "-- depends: three\nSELECT 1;")
	require.Error(t, err)
}

func TestParseEmptyUp(t *testing.T) {
	_, err := parse(9, "empty", "-- DOWN\nDROP TABLE x;")
	require.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_add_roles.sql":   {Data: []byte("CREATE TABLE roles (id TEXT);")},
		"0001_create_user.sql": {Data: []byte("CREATE TABLE users (id TEXT);\n-- DOWN\nDROP TABLE users;")},
		"README.md":            {Data: []byte("not a migration")},
	}
	all, err := LoadDir(fsys)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, int64(1), all[0].Version)
	require.Equal(t, "create_user", all[0].Name)
	require.Equal(t, int64(2), all[1].Version)
}

func TestLoadDirDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("SELECT 1;")},
		"1_b.sql":    {Data: []byte("SELECT 2;")},
	}
	_, err := LoadDir(fsys)
	require.Error(t, err)
	require.Contains(t, err.Error(), "version 1")
}

func TestOrderHonorsDepends(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_base.sql": {Data: []byte("-- depends: 3\nSELECT 1;")},
		"0002_mid.sql":  {Data: []byte("SELECT 2;")},
		"0003_dep.sql":  {Data: []byte("SELECT 3;")},
	}
	all, err := LoadDir(fsys)
	require.NoError(t, err)

	ordered, err := order(all)
	require.NoError(t, err)
	positions := map[int64]int{}
	for i, m := range ordered {
		positions[m.Version] = i
	}
	require.Less(t, positions[3], positions[1], "dependency must run first")
}

func TestOrderDetectsCycle(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("-- depends: 2\nSELECT 1;")},
		"0002_b.sql": {Data: []byte("-- depends: 1\nSELECT 2;")},
	}
	all, err := LoadDir(fsys)
	require.NoError(t, err)
	_, err = order(all)
	require.ErrorIs(t, err, vars.ErrCycle)
}

func TestOrderUnknownDependency(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("-- depends: 42\nSELECT 1;")},
	}
	all, err := LoadDir(fsys)
	require.NoError(t, err)
	_, err = order(all)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown version 42")
}
