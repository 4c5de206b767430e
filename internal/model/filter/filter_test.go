package filter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/model_layer/internal/errors"
	"github.com/R3E-Network/model_layer/internal/model/schema"
)

type item struct {
	ID    int64     `db:"id"`
	Title string    `db:"title"`
	Done  bool      `db:"done"`
	CTime time.Time `db:"ctime"`
}

var itemDesc = schema.MustDescribe[item]("item")

func compile(t *testing.T, filters string) Clause {
	t.Helper()
	groups, err := Decode(json.RawMessage(filters))
	require.NoError(t, err)
	c, err := Compile(itemDesc, groups, 1)
	require.NoError(t, err)
	return c
}

func TestCompile_DisjunctionOfConjunctions(t *testing.T) {
	c := compile(t, `[
		{"title": {"$endsWith": ".a", "$containsAny": ["01", "02"]}},
		{"title": {"$contains": "03"}}
	]`)

	assert.Equal(t,
		`(("title" LIKE $1 ESCAPE '\' OR "title" LIKE $2 ESCAPE '\') AND "title" LIKE $3 ESCAPE '\') OR ("title" LIKE $4 ESCAPE '\')`,
		c.SQL)
	assert.Equal(t, []any{"%01%", "%02%", "%.a", "%03%"}, c.Args)
}

func TestCompile_Empty(t *testing.T) {
	for _, in := range []string{``, `null`, `[]`} {
		c := compile(t, in)
		assert.True(t, c.Empty(), in)
		assert.Empty(t, c.Args, in)
	}
}

func TestCompile_FieldsInDescriptorOrder(t *testing.T) {
	c := compile(t, `{"done": true, "title": "x", "id": {"$gte": 3, "$lt": 9}}`)
	assert.Equal(t, `("id" >= $1 AND "id" < $2 AND "title" = $3 AND "done" = $4)`, c.SQL)
	assert.Equal(t, []any{int64(3), int64(9), "x", true}, c.Args)
}

func TestCompile_StartArg(t *testing.T) {
	groups, err := Decode(json.RawMessage(`{"id": {"$in": [1, 2]}}`))
	require.NoError(t, err)
	c, err := Compile(itemDesc, groups, 4)
	require.NoError(t, err)
	assert.Equal(t, `("id" IN ($4, $5))`, c.SQL)
}

func TestCompile_Operators(t *testing.T) {
	tests := []struct {
		name    string
		filters string
		sql     string
		args    []any
	}{
		{"not", `{"title": {"$not": "a"}}`, `("title" <> $1)`, []any{"a"}},
		{"null", `{"title": {"$null": true}}`, `("title" IS NULL)`, nil},
		{"not null", `{"title": {"$null": false}}`, `("title" IS NOT NULL)`, nil},
		{"empty in", `{"id": {"$in": []}}`, `(1 = 0)`, nil},
		{"empty notIn", `{"id": {"$notIn": []}}`, `(1 = 1)`, nil},
		{"notIn", `{"id": {"$notIn": [5]}}`, `("id" NOT IN ($1))`, []any{int64(5)}},
		{"startsWith", `{"title": {"$startsWith": "t-"}}`, `("title" LIKE $1 ESCAPE '\')`, []any{"t-%"}},
		{"notEndsWith", `{"title": {"$notEndsWith": "b"}}`, `("title" NOT LIKE $1 ESCAPE '\')`, []any{"%b"}},
		{"containsAll", `{"title": {"$containsAll": ["a", "b"]}}`,
			`(("title" LIKE $1 ESCAPE '\' AND "title" LIKE $2 ESCAPE '\'))`, []any{"%a%", "%b%"}},
		{"notContainsAny", `{"title": {"$notContainsAny": ["a", "b"]}}`,
			`(("title" NOT LIKE $1 ESCAPE '\' AND "title" NOT LIKE $2 ESCAPE '\'))`, []any{"%a%", "%b%"}},
		{"containsCi", `{"title": {"$containsCi": "AbC"}}`, `(LOWER("title") LIKE LOWER($1) ESCAPE '\')`, []any{"%AbC%"}},
		{"escaping", `{"title": {"$contains": "50%_\\"}}`, `("title" LIKE $1 ESCAPE '\')`, []any{`%50\%\_\\%`}},
		{"empty group", `[{}]`, `(1 = 1)`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := compile(t, tt.filters)
			assert.Equal(t, tt.sql, c.SQL)
			assert.Equal(t, tt.args, c.Args)
		})
	}
}

func TestCompile_Timestamp(t *testing.T) {
	c := compile(t, `{"ctime": {"$gt": "2024-01-02T03:04:05Z"}}`)
	assert.Equal(t, `("ctime" > $1)`, c.SQL)
	assert.Equal(t, []any{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}, c.Args)
}

func TestCompile_SchemaViolation(t *testing.T) {
	tests := map[string]string{
		"unknown field":        `{"owner": 1}`,
		"pattern on integer":   `{"id": {"$contains": "1"}}`,
		"range on boolean":     `{"done": {"$gt": true}}`,
		"string for integer":   `{"id": "1"}`,
		"fraction for integer": `{"id": 1.5}`,
		"bad timestamp":        `{"ctime": "yesterday"}`,
		"number for pattern":   `{"title": {"$startsWith": 1}}`,
	}
	for name, filters := range tests {
		t.Run(name, func(t *testing.T) {
			groups, err := Decode(json.RawMessage(filters))
			require.NoError(t, err)
			_, err = Compile(itemDesc, groups, 1)
			assert.True(t, errors.IsKind(err, errors.KindSchemaViolation), "got %v", err)
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown operator":    `{"title": {"$like": "x"}}`,
		"scalar for list op":  `{"title": {"$containsAny": "x"}}`,
		"list for scalar op":  `{"title": {"$eq": ["x"]}}`,
		"non-bool null":       `{"title": {"$null": 1}}`,
		"not an object":       `[1]`,
		"not a filter":        `"title"`,
		"empty operator map":  `{"title": {}}`,
		"nested array values": `{"id": {"$in": [[1]]}}`,
	}
	for name, filters := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(json.RawMessage(filters))
			assert.True(t, errors.IsKind(err, errors.KindParamDecodeFailure), "got %v", err)
		})
	}
}

func TestListOptions(t *testing.T) {
	opts, err := DecodeListOptions(json.RawMessage(`{"order_bys": "!id"}`))
	require.NoError(t, err)
	tail, err := opts.Compile(itemDesc)
	require.NoError(t, err)
	assert.Equal(t, ` ORDER BY "id" DESC`, tail)

	opts, err = DecodeListOptions(json.RawMessage(`{"order_bys": ["done", "!title"], "limit": 10, "offset": 20}`))
	require.NoError(t, err)
	tail, err = opts.Compile(itemDesc)
	require.NoError(t, err)
	assert.Equal(t, ` ORDER BY "done" ASC, "title" DESC LIMIT 10 OFFSET 20`, tail)

	opts, err = DecodeListOptions(nil)
	require.NoError(t, err)
	assert.Nil(t, opts)
	tail, err = opts.Compile(itemDesc)
	require.NoError(t, err)
	assert.Equal(t, ` ORDER BY "id" ASC`, tail)
}

func TestListOptions_Rejects(t *testing.T) {
	_, err := DecodeListOptions(json.RawMessage(`{"limit": -1}`))
	assert.True(t, errors.IsKind(err, errors.KindParamDecodeFailure))

	_, err = DecodeListOptions(json.RawMessage(`{"order_bys": 3}`))
	assert.True(t, errors.IsKind(err, errors.KindParamDecodeFailure))

	opts, err := DecodeListOptions(json.RawMessage(`{"order_bys": "!owner"}`))
	require.NoError(t, err)
	_, err = opts.Compile(itemDesc)
	assert.True(t, errors.IsKind(err, errors.KindSchemaViolation))
}
