package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/bintheory/pkg/core"
	"github.com/theory-cloud/bintheory/pkg/query"
)

func TestTranslate_Nil(t *testing.T) {
	assert.Nil(t, query.Translate(nil))
}

func TestTranslate_ScopeAndID(t *testing.T) {
	req := query.Translate(query.New("test", "users"))
	require.NotNil(t, req)

	assert.Equal(t, "test", req.Namespace)
	assert.Equal(t, "users", req.Set)
	assert.NotEmpty(t, req.ID)

	other := query.Translate(query.New("test", "users"))
	assert.NotEqual(t, req.ID, other.ID)
}

func TestTranslate_Limit(t *testing.T) {
	unbounded := query.Translate(query.New("test", ""))
	assert.Nil(t, unbounded.Limit)
	assert.False(t, unbounded.HasLimit())

	limited := query.Translate(query.New("test", "").Limit(10))
	require.NotNil(t, limited.Limit)
	assert.Equal(t, uint64(10), *limited.Limit)

	zero := query.Translate(&query.Query{Namespace: "test"})
	require.NotNil(t, zero.Limit)
	assert.Equal(t, uint64(0), *zero.Limit)
}

func TestTranslate_BinsStopAtTerminator(t *testing.T) {
	q := query.New("test", "").Select("a", "b", "c", "", "d")

	req := query.Translate(q)

	assert.Equal(t, []string{"a", "b", "c"}, req.Bins)
}

func TestTranslate_NoBinsMeansAll(t *testing.T) {
	assert.Empty(t, query.Translate(query.New("test", "")).Bins)
}

func TestTranslate_PredicateShapes(t *testing.T) {
	tests := []struct {
		name      string
		predicate query.Predicate
		want      core.Filter
	}{
		{
			name:      "string equals",
			predicate: query.StringEquals("name", "ada"),
			want:      core.Filter{Bin: "name", Op: core.OpEqual, Type: core.TypeString, Str: "ada"},
		},
		{
			name:      "integer equals",
			predicate: query.IntegerEquals("age", 42),
			want:      core.Filter{Bin: "age", Op: core.OpEqual, Type: core.TypeInteger, Int: 42},
		},
		{
			name:      "integer range",
			predicate: query.IntegerRange("age", 5, 10),
			want:      core.Filter{Bin: "age", Op: core.OpRange, Type: core.TypeInteger, Min: 5, Max: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := query.Translate(query.New("test", "").Where(tt.predicate))
			require.Len(t, req.Filters, 1)
			assert.Equal(t, tt.want, req.Filters[0])
		})
	}
}

func TestTranslate_PredicatesStopAtFirstEmptyBin(t *testing.T) {
	q := query.New("test", "").Where(
		query.IntegerEquals("a", 1),
		query.StringEquals("b", "x"),
		query.Predicate{Kind: query.KindIntegerEquals, Int: 9},
		query.IntegerRange("c", 1, 2),
	)

	req := query.Translate(q)

	require.Len(t, req.Filters, 2)
	assert.Equal(t, "a", req.Filters[0].Bin)
	assert.Equal(t, "b", req.Filters[1].Bin)
}

func TestTranslate_UnknownKindDropped(t *testing.T) {
	q := query.New("test", "").Where(
		query.IntegerEquals("a", 1),
		query.Predicate{Bin: "weird", Kind: query.Kind(77)},
		query.IntegerEquals("b", 2),
	)

	req := query.Translate(q)

	require.Len(t, req.Filters, 2)
	assert.Equal(t, "a", req.Filters[0].Bin)
	assert.Equal(t, "b", req.Filters[1].Bin)
}

func TestTranslate_OrderPreserved(t *testing.T) {
	q := query.New("test", "").
		OrderBy("last", query.Ascending).
		OrderBy("first", query.Descending).
		OrderBy("", query.Ascending).
		OrderBy("ignored", query.Ascending)

	req := query.Translate(q)

	assert.Equal(t, []core.SortKey{
		{Bin: "last"},
		{Bin: "first", Descending: true},
	}, req.Sort)
}

func TestTranslate_Aggregation(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		q := query.New("test", "").Apply("stats", "sum", "age")
		req := query.Translate(q)

		require.NotNil(t, req.Aggregate)
		assert.Equal(t, "stats", req.Aggregate.Module)
		assert.Equal(t, "sum", req.Aggregate.Function)
		assert.Equal(t, []any{"age"}, req.Aggregate.Args)

		q.Aggregation.Args[0] = "changed"
		assert.Equal(t, []any{"age"}, req.Aggregate.Args)
	})

	t.Run("module only is absent", func(t *testing.T) {
		req := query.Translate(query.New("test", "").Apply("stats", ""))
		assert.Nil(t, req.Aggregate)
	})

	t.Run("function only is absent", func(t *testing.T) {
		req := query.Translate(query.New("test", "").Apply("", "count"))
		assert.Nil(t, req.Aggregate)
	})
}

func TestTranslate_DoesNotAliasDescriptor(t *testing.T) {
	q := query.New("test", "").Select("a").Limit(5)
	req := query.Translate(q)

	q.Bins[0] = "z"
	q.Limit(9)

	assert.Equal(t, []string{"a"}, req.Bins)
	assert.Equal(t, uint64(5), *req.Limit)
}
