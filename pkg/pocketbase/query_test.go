package pocketbase_test

import (
	"testing"

	"github.com/fivetwenty-io/pocketbase-go/pkg/pocketbase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestListQuery_Encode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		query    pocketbase.ListQuery
		expected string
	}{
		{
			name:     "empty",
			query:    pocketbase.NewListQuery(),
			expected: "",
		},
		{
			name:     "sort keeps commas",
			query:    pocketbase.NewListQuery().Sort("-created,id"),
			expected: "sort=-created,id",
		},
		{
			name:     "plus prefix is kept",
			query:    pocketbase.NewListQuery().Sort("+title, -views"),
			expected: "sort=%2Btitle,-views",
		},
		{
			name:     "filter is escaped",
			query:    pocketbase.NewListQuery().Filter(`status = "published" && views > 10`),
			expected: "filter=status+%3D+%22published%22+%26%26+views+%3E+10",
		},
		{
			name: "canonical order",
			query: pocketbase.NewListQuery().
				SkipTotal(true).
				Expand("author", "comments_via_post.user").
				PerPage(50).
				Page(2).
				Sort("-created").
				Filter("a=1"),
			expected: "filter=a%3D1&sort=-created&page=2&perPage=50&expand=author,comments_via_post.user&skipTotal=1",
		},
		{
			name:     "sort replaces",
			query:    pocketbase.NewListQuery().Sort("a").Sort("b"),
			expected: "sort=b",
		},
		{
			name:     "expand accumulates",
			query:    pocketbase.NewListQuery().Expand("a").Expand("b"),
			expected: "expand=a,b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			encoded, err := tt.query.Encode()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, encoded)
		})
	}
}

func TestListQuery_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		query    pocketbase.ListQuery
		argument string
	}{
		{name: "zero page", query: pocketbase.NewListQuery().Page(0), argument: "page"},
		{name: "negative perPage", query: pocketbase.NewListQuery().PerPage(-1), argument: "perPage"},
		{name: "empty sort", query: pocketbase.NewListQuery().Sort(""), argument: "sort"},
		{name: "empty sort field", query: pocketbase.NewListQuery().Sort("name,,id"), argument: "sort"},
		{name: "bare prefix", query: pocketbase.NewListQuery().Sort("-"), argument: "sort"},
		{name: "empty expand", query: pocketbase.NewListQuery().Expand("author", " "), argument: "expand"},
		{name: "first error wins", query: pocketbase.NewListQuery().Page(0).PerPage(0), argument: "page"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := tt.query.Encode()

			var argErr *pocketbase.InvalidArgumentError

			require.ErrorAs(t, err, &argErr)
			assert.Equal(t, tt.argument, argErr.Argument)
			assert.Equal(t, err, tt.query.Err())
		})
	}
}

func TestListQuery_Immutable(t *testing.T) {
	t.Parallel()

	base := pocketbase.NewListQuery().Expand("author")
	first := base.Expand("tags").Page(2)
	second := base.Sort("-created")

	baseEncoded, err := base.Encode()
	require.NoError(t, err)
	assert.Equal(t, "expand=author", baseEncoded)

	firstEncoded, err := first.Encode()
	require.NoError(t, err)
	assert.Equal(t, "page=2&expand=author,tags", firstEncoded)

	secondEncoded, err := second.Encode()
	require.NoError(t, err)
	assert.Equal(t, "sort=-created&expand=author", secondEncoded)

	assert.Equal(t, 2, first.PageNumber())
	assert.Equal(t, 0, base.PageNumber())
	assert.Equal(t, []string{"-created"}, second.SortFields())
}

func TestParseSort(t *testing.T) {
	t.Parallel()

	fields, err := pocketbase.ParseSort("-created, id ,+title")
	require.NoError(t, err)
	assert.Equal(t, []string{"-created", "id", "+title"}, fields)

	_, err = pocketbase.ParseSort("a,")
	require.ErrorIs(t, err, pocketbase.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "position 2")
}
