package schema

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID    int64     `db:"id"`
	Name  string    `db:"name"`
	On    bool      `db:"on"`
	Note  *string   `db:"note"`
	CTime time.Time `db:"ctime"`
	skip  int
	Extra string `db:"-"`
}

type widgetPatch struct {
	Name *string `db:"name"`
	On   *bool   `db:"on"`
}

func TestDescribe(t *testing.T) {
	d, err := Describe[widget]("widget")
	require.NoError(t, err)

	assert.Equal(t, "widget", d.Table)
	assert.Equal(t, "id", d.PrimaryKey)
	require.Len(t, d.Fields, 5)

	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"id", "name", "on", "note", "ctime"}, names)

	f, ok := d.Field("note")
	require.True(t, ok)
	assert.Equal(t, String, f.Type)
	assert.True(t, f.Nullable)

	f, _ = d.Field("ctime")
	assert.Equal(t, Timestamp, f.Type)
	f, _ = d.Field("on")
	assert.Equal(t, Boolean, f.Type)

	assert.False(t, d.HasField("Extra"))
	assert.False(t, d.HasField("skip"))
}

func TestDescribe_Rejects(t *testing.T) {
	_, err := Describe[widget]("  ")
	assert.Error(t, err)

	type dup struct {
		ID int64 `db:"id"`
		A  int   `db:"a"`
		B  int   `db:"a"`
	}
	_, err = Describe[dup]("dup")
	assert.ErrorContains(t, err, "duplicate")

	type nopk struct {
		Name string `db:"name"`
	}
	_, err = Describe[nopk]("nopk")
	assert.ErrorContains(t, err, "primary key")

	type bad struct {
		ID   int64          `db:"id"`
		Tags map[string]int `db:"tags"`
	}
	_, err = Describe[bad]("bad")
	assert.ErrorContains(t, err, "unsupported")
}

func TestMustDescribe_Panics(t *testing.T) {
	assert.Panics(t, func() { MustDescribe[widget]("") })
}

func TestPresent(t *testing.T) {
	name := "x"
	names, values, err := Present(widgetPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, names)
	assert.Equal(t, []any{"x"}, values)

	names, _, err = Present(&widgetPatch{})
	require.NoError(t, err)
	assert.Empty(t, names)

	_, _, err = Present((*widgetPatch)(nil))
	assert.Error(t, err)
}

func TestColumns(t *testing.T) {
	cols, err := Columns(reflect.TypeOf(widgetPatch{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "on"}, cols)
}
