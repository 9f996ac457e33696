package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/reflector/internal/orm/platform"
	"github.com/conduit-lang/reflector/internal/orm/schema"
)

const bazaarSnapshot = `
tables:
  - schema: bazaar
    name: users
    columns:
      - {name: user_id, data_type: int64, db_data_type: int8, is_primary: true}
      - {name: username, data_type: string, db_data_type: text}
  - schema: bazaar
    name: product
    columns:
      - {name: product_id, data_type: int64, db_data_type: int8, is_primary: true}
      - name: owner_id
        data_type: int64
        db_data_type: int8
        foreign: {schema: bazaar, table: users, column: user_id}
  - schema: bazaar
    name: product_availability
    columns:
      - name: product_id
        data_type: int64
        db_data_type: int8
        is_primary: true
        foreign: {schema: bazaar, table: product, column: product_id}
      - {name: available, data_type: bool, db_data_type: bool}
  - schema: bazaar
    name: review
    columns:
      - {name: review_id, data_type: int64, db_data_type: int8, is_primary: true}
      - name: product_id
        data_type: int64
        db_data_type: int8
        foreign: {schema: bazaar, table: product, column: product_id}
  - schema: bazaar
    name: category
    columns:
      - {name: category_id, data_type: int64, db_data_type: int8, is_primary: true}
  - schema: bazaar
    name: product_category
    columns:
      - name: product_id
        data_type: int64
        db_data_type: int8
        is_primary: true
        foreign: {schema: bazaar, table: product, column: product_id}
      - name: category_id
        data_type: int64
        db_data_type: int8
        is_primary: true
        foreign: {schema: bazaar, table: category, column: category_id}
  - schema: sales
    name: review
    columns:
      - {name: review_id, data_type: int64, db_data_type: int8, is_primary: true}
`

const bazaarDDL = `
CREATE TABLE users (
	user_id INTEGER PRIMARY KEY,
	username TEXT NOT NULL
);
CREATE TABLE product (
	product_id INTEGER PRIMARY KEY,
	owner_id INTEGER REFERENCES users(user_id)
);
CREATE TABLE review (
	review_id INTEGER PRIMARY KEY,
	product_id INTEGER NOT NULL REFERENCES product(product_id)
);
`

// isolate runs the test in an empty directory with no reflector environment
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })

	t.Setenv("DATABASE_URL", "")
	t.Setenv("REFLECTOR_DATABASE_URL", "")
	t.Setenv("REFLECTOR_CACHE_REDIS_ADDR", "")
	t.Setenv("REFLECTOR_LOG_LEVEL", "error")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeSnapshot(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "bazaar.yml")
	require.NoError(t, os.WriteFile(path, []byte(bazaarSnapshot), 0o644))
	return path
}

func createSqlite(t *testing.T, dir string) string {
	t.Helper()
	url := "sqlite://" + filepath.Join(dir, "bazaar.db")

	ctx := context.Background()
	p, err := platform.Connect(ctx, url)
	require.NoError(t, err)
	defer p.Close()
	db, err := p.Database()
	require.NoError(t, err)

	for _, stmt := range strings.Split(bazaarDDL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(ctx, stmt)
		require.NoError(t, err)
	}
	return url
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "reflector", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	for _, expected := range []string{"version", "relations", "inspect", "pool", "cache"} {
		found, _, err := cmd.Find([]string{expected})
		require.NoError(t, err, expected)
		assert.Equal(t, expected, found.Name())
	}

	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("no-color"))
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	Version = "1.0.0-test"
	GitCommit = "abc123"
	BuildDate = "2025-01-01"
	GoVersion = "go1.23"

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Reflector version: 1.0.0-test")
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "go1.23")
}

func TestRelationsCommand(t *testing.T) {
	dir := isolate(t)
	file := writeSnapshot(t, dir)

	t.Run("table output", func(t *testing.T) {
		out, err := execute(t, "relations", "--file", file, "--table", "bazaar.product")
		require.NoError(t, err)

		assert.Contains(t, out, "bazaar.product\n")
		assert.Contains(t, out, "Member")
		assert.Regexp(t, `owner\s+has_one\s+bazaar\.users\s+owner_id`, out)
		assert.Regexp(t, `availability\s+extension\s+bazaar\.product_availability`, out)
		assert.Regexp(t, `review\s+has_many\s+bazaar\.review\s+product_id`, out)
		assert.Regexp(t, `category\s+has_many_through\s+bazaar\.category\s+bazaar\.product_category`, out)
	})

	t.Run("json output", func(t *testing.T) {
		out, err := execute(t, "relations", "--file", file, "--table", "bazaar.product", "--format", "json")
		require.NoError(t, err)

		var reports []tableReport
		require.NoError(t, json.Unmarshal([]byte(out), &reports))
		require.Len(t, reports, 1)
		assert.Equal(t, "bazaar.product", reports[0].Table)
		assert.Equal(t, []memberReport{
			{Name: "owner", Kind: "has_one", Target: "bazaar.users", Column: "owner_id"},
			{Name: "availability", Kind: "extension", Target: "bazaar.product_availability"},
			{Name: "review", Kind: "has_many", Target: "bazaar.review", Column: "product_id"},
			{Name: "category", Kind: "has_many_through", Target: "bazaar.category", Through: "bazaar.product_category"},
		}, reports[0].Members)
	})

	t.Run("yaml output of every table", func(t *testing.T) {
		out, err := execute(t, "relations", "--file", file, "--format", "yaml")
		require.NoError(t, err)

		var reports []tableReport
		require.NoError(t, yaml.Unmarshal([]byte(out), &reports))
		require.Len(t, reports, 7)

		byName := make(map[string]tableReport)
		for _, r := range reports {
			byName[r.Table] = r
		}
		assert.True(t, byName["bazaar.product_availability"].Owned)
		assert.True(t, byName["bazaar.review"].Owned)
		assert.False(t, byName["bazaar.product"].Owned)
		assert.Empty(t, byName["sales.review"].Members)
	})

	t.Run("bare table name", func(t *testing.T) {
		out, err := execute(t, "relations", "--file", file, "--table", "category")
		require.NoError(t, err)
		assert.Regexp(t, `product\s+has_many_through\s+bazaar\.product`, out)
	})

	t.Run("ambiguous bare table name", func(t *testing.T) {
		_, err := execute(t, "relations", "--file", file, "--table", "review")
		require.Error(t, err)

		var me *messageError
		require.True(t, errors.As(err, &me))
		assert.Equal(t, []string{"bazaar.review", "sales.review"}, me.msg.Suggestions)
	})

	t.Run("unknown table suggests close names", func(t *testing.T) {
		_, err := execute(t, "relations", "--file", file, "--table", "bazaar.prodcut")
		require.ErrorIs(t, err, schema.ErrTableNotFound)

		var me *messageError
		require.True(t, errors.As(err, &me))
		assert.Contains(t, me.msg.Format(), "Did you mean: bazaar.product?")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := execute(t, "relations", "--file", file, "--format", "xml")
		assert.ErrorContains(t, err, `unknown format "xml"`)
	})

	t.Run("no source", func(t *testing.T) {
		_, err := execute(t, "relations")
		assert.ErrorIs(t, err, errNoSource)
	})
}

func TestRelationsFromDatabase(t *testing.T) {
	dir := isolate(t)
	url := createSqlite(t, dir)

	out, err := execute(t, "relations", "--url", url, "--table", "main.product", "--format", "json")
	require.NoError(t, err)

	var reports []tableReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, []memberReport{
		{Name: "owner", Kind: "has_one", Target: "main.users", Column: "owner_id"},
		{Name: "review", Kind: "has_many", Target: "main.review", Column: "product_id"},
	}, reports[0].Members)
}

func TestRelationsUsesCachedCatalog(t *testing.T) {
	dir := isolate(t)
	url := createSqlite(t, dir)
	mr := miniredis.RunT(t)
	t.Setenv("REFLECTOR_CACHE_REDIS_ADDR", mr.Addr())

	_, err := execute(t, "relations", "--url", url, "--table", "main.product")
	require.NoError(t, err)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "reflector:catalog:"))

	require.NoError(t, os.Remove(filepath.Join(dir, "bazaar.db")))

	out, err := execute(t, "relations", "--url", url, "--table", "main.product")
	require.NoError(t, err)
	assert.Regexp(t, `owner\s+has_one\s+main\.users`, out)
}

func TestInspectCommand(t *testing.T) {
	dir := isolate(t)
	url := createSqlite(t, dir)

	t.Run("writes a snapshot file", func(t *testing.T) {
		path := filepath.Join(dir, "snapshot.json")
		out, err := execute(t, "inspect", "--url", url, "--out", path)
		require.NoError(t, err)
		assert.Contains(t, out, "✓ wrote 3 tables to "+path)

		c, err := schema.LoadFile(path)
		require.NoError(t, err)
		product, err := c.Get("main", "product")
		require.NoError(t, err)
		owner, ok := product.Column("owner_id")
		require.True(t, ok)
		require.NotNil(t, owner.Foreign)
		assert.Equal(t, "users", owner.Foreign.Table)
	})

	t.Run("yaml to stdout", func(t *testing.T) {
		out, err := execute(t, "inspect", "--url", url)
		require.NoError(t, err)

		c, err := schema.Decode(strings.NewReader(out), schema.FormatYAML)
		require.NoError(t, err)
		assert.Equal(t, 3, c.Len())
	})

	t.Run("unknown snapshot extension", func(t *testing.T) {
		_, err := execute(t, "inspect", "--url", url, "--out", filepath.Join(dir, "snapshot.txt"))
		assert.ErrorIs(t, err, schema.ErrUnknownFormat)
	})

	t.Run("placeholder backend", func(t *testing.T) {
		_, err := execute(t, "inspect", "--url", "mysql://app@localhost/bazaar")
		assert.ErrorIs(t, err, platform.ErrNotImplemented)
	})
}

func TestCacheClearCommand(t *testing.T) {
	dir := isolate(t)
	url := createSqlite(t, dir)
	mr := miniredis.RunT(t)
	t.Setenv("REFLECTOR_CACHE_REDIS_ADDR", mr.Addr())

	_, err := execute(t, "relations", "--url", url)
	require.NoError(t, err)
	require.NoError(t, mr.Set("session:abc", "v"))
	require.Len(t, mr.Keys(), 2)

	out, err := execute(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ cached catalogs cleared")
	assert.Equal(t, []string{"session:abc"}, mr.Keys())
}

func TestPoolCommand(t *testing.T) {
	dir := isolate(t)
	url := createSqlite(t, dir)

	out, err := execute(t, "pool", "--url", url, "--reserve", "2", "--borrow", "1")
	require.NoError(t, err)

	sections := strings.Split(out, "\n\n")
	require.Len(t, sections, 3)
	assert.Contains(t, sections[0], "free:     2")
	assert.Contains(t, sections[0], "reserved: 2")
	assert.Contains(t, sections[1], "free:     1")
	assert.Contains(t, sections[1], "borrowed: 1")
	assert.Contains(t, sections[2], "free:     2")
	assert.Contains(t, sections[2], "borrowed: 0")
	assert.Contains(t, out, "✓ pool closed, 2 free connections released")
	assert.NotContains(t, out, "disposed")

	t.Run("negative counts", func(t *testing.T) {
		_, err := execute(t, "pool", "--url", url, "--borrow=-1")
		assert.Error(t, err)
	})
}
