package pocketbase

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// ListQuery accumulates list parameters. It is a value type: every method
// returns an updated copy and leaves the receiver untouched, so a query can
// be shared between goroutines and extended independently.
//
// Invalid input does not panic; the first error is kept and reported by Err,
// Encode, and any terminal call, before a request is sent.
type ListQuery struct {
	filter    string
	sort      []string
	page      int
	perPage   int
	expand    []string
	skipTotal bool
	err       error
}

// NewListQuery returns an empty query.
func NewListQuery() ListQuery {
	return ListQuery{}
}

// Filter sets the filter expression, e.g. `status = "published" && views > 10`.
func (q ListQuery) Filter(expr string) ListQuery {
	q.filter = expr

	return q
}

// Sort replaces the sort order with the comma-separated field list in order.
// A "-" prefix sorts descending, "+" or no prefix ascending.
func (q ListQuery) Sort(order string) ListQuery {
	fields, err := ParseSort(order)
	if err != nil {
		return q.fail(err)
	}

	q.sort = fields

	return q
}

// Page sets the 1-based page number.
func (q ListQuery) Page(n int) ListQuery {
	if n < 1 {
		return q.fail(&InvalidArgumentError{Argument: "page", Reason: fmt.Sprintf("must be >= 1, got %d", n)})
	}

	q.page = n

	return q
}

// PerPage sets the page size.
func (q ListQuery) PerPage(n int) ListQuery {
	if n < 1 {
		return q.fail(&InvalidArgumentError{Argument: "perPage", Reason: fmt.Sprintf("must be >= 1, got %d", n)})
	}

	q.perPage = n

	return q
}

// Expand adds relation paths to expand, e.g. "author" or "comments_via_post.user".
func (q ListQuery) Expand(paths ...string) ListQuery {
	expand := slices.Clone(q.expand)

	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			return q.fail(&InvalidArgumentError{Argument: "expand", Reason: "empty relation path"})
		}

		expand = append(expand, path)
	}

	q.expand = expand

	return q
}

// SkipTotal asks the server not to count the total items. The result then
// reports -1 for TotalItems and TotalPages.
func (q ListQuery) SkipTotal(skip bool) ListQuery {
	q.skipTotal = skip

	return q
}

// Err returns the first error recorded while building the query.
func (q ListQuery) Err() error {
	return q.err
}

// SortFields returns a copy of the sort fields.
func (q ListQuery) SortFields() []string {
	return slices.Clone(q.sort)
}

// PageNumber returns the page, or 0 when unset.
func (q ListQuery) PageNumber() int { return q.page }

// PageSize returns the page size, or 0 when unset.
func (q ListQuery) PageSize() int { return q.perPage }

// Encode serializes the query into its canonical query string. Parameters
// that were never set are omitted; the order is filter, sort, page, perPage,
// expand, skipTotal. Commas in sort and expand stay literal.
func (q ListQuery) Encode() (string, error) {
	if q.err != nil {
		return "", q.err
	}

	var parts []string

	if q.filter != "" {
		parts = append(parts, "filter="+escapeQueryValue(q.filter))
	}

	if len(q.sort) > 0 {
		parts = append(parts, "sort="+escapeQueryValue(strings.Join(q.sort, ",")))
	}

	if q.page > 0 {
		parts = append(parts, "page="+strconv.Itoa(q.page))
	}

	if q.perPage > 0 {
		parts = append(parts, "perPage="+strconv.Itoa(q.perPage))
	}

	if len(q.expand) > 0 {
		parts = append(parts, "expand="+escapeQueryValue(strings.Join(q.expand, ",")))
	}

	if q.skipTotal {
		parts = append(parts, "skipTotal=1")
	}

	return strings.Join(parts, "&"), nil
}

func (q ListQuery) fail(err error) ListQuery {
	if q.err == nil {
		q.err = err
	}

	return q
}

// ParseSort splits a sort order such as "-created,id" into its fields.
func ParseSort(order string) ([]string, error) {
	parts := strings.Split(order, ",")
	fields := make([]string, 0, len(parts))

	for i, part := range parts {
		field := strings.TrimSpace(part)

		name := field
		if strings.HasPrefix(name, "-") || strings.HasPrefix(name, "+") {
			name = name[1:]
		}

		if strings.TrimSpace(name) == "" {
			return nil, &InvalidArgumentError{
				Argument: "sort",
				Reason:   fmt.Sprintf("empty field name at position %d in %q", i+1, order),
			}
		}

		fields = append(fields, field)
	}

	return fields, nil
}

func escapeQueryValue(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "%2C", ",")
}
