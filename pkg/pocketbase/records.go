package pocketbase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/pocketbase-go/internal/constants"
)

// Records is the typed record API of one collection. T is usually a struct
// embedding BaseRecord, or Record for untyped access.
type Records[T any] struct {
	coll Collection
}

// NewRecords wraps coll with typed encoding.
func NewRecords[T any](coll Collection) *Records[T] {
	return &Records[T]{coll: coll}
}

// CollectionOf is shorthand for NewRecords over client.Collection(name).
func CollectionOf[T any](client Client, name string) (*Records[T], error) {
	coll, err := client.Collection(name)
	if err != nil {
		return nil, err
	}

	return NewRecords[T](coll), nil
}

// Name returns the collection name.
func (r *Records[T]) Name() string { return r.coll.Name() }

// Collection returns the untyped handle.
func (r *Records[T]) Collection() Collection { return r.coll }

// Create inserts record and returns the stored version.
func (r *Records[T]) Create(ctx context.Context, record T) (*T, error) {
	body, err := Encode(record)
	if err != nil {
		return nil, err
	}

	raw, err := r.coll.CreateRecord(ctx, body)
	if err != nil {
		return nil, err
	}

	return decodeOne[T](raw)
}

// GetOne fetches a record by id, expanding the given relations.
func (r *Records[T]) GetOne(ctx context.Context, id string, expand ...string) (*T, error) {
	err := requireID(id)
	if err != nil {
		return nil, err
	}

	query := ""
	if len(expand) > 0 {
		query, err = NewListQuery().Expand(expand...).Encode()
		if err != nil {
			return nil, err
		}
	}

	raw, err := r.coll.GetRecord(ctx, id, query)
	if err != nil {
		return nil, err
	}

	return decodeOne[T](raw)
}

// GetList starts a list call.
func (r *Records[T]) GetList() ListCall[T] {
	return ListCall[T]{records: r, query: NewListQuery()}
}

// List runs query and returns one page.
func (r *Records[T]) List(ctx context.Context, query ListQuery) (*ListResult[T], error) {
	encoded, err := query.Encode()
	if err != nil {
		return nil, err
	}

	raw, err := r.coll.ListRecords(ctx, encoded)
	if err != nil {
		return nil, err
	}

	return DecodeList[T](raw)
}

// GetFirstListItem returns the first record matching query. No match is a
// NotFoundError.
func (r *Records[T]) GetFirstListItem(ctx context.Context, query ListQuery) (*T, error) {
	result, err := r.List(ctx, query.Page(1).PerPage(1).SkipTotal(true))
	if err != nil {
		return nil, err
	}

	if len(result.Items) == 0 {
		return nil, &NotFoundError{Message: "no " + r.coll.Name() + " record matches the query"}
	}

	return &result.Items[0], nil
}

// GetFullList walks every page of query in order. The page size of query is
// requested as the batch size, defaulting to the server maximum; the server
// may clamp it, so a page is short only relative to the perPage it reports.
// Any failing page fails the whole call.
func (r *Records[T]) GetFullList(ctx context.Context, query ListQuery) ([]T, error) {
	batch := query.PageSize()
	if batch == 0 {
		batch = constants.FullListBatchSize
	}

	query = query.PerPage(batch).SkipTotal(true)

	var items []T

	for page := 1; ; page++ {
		result, err := r.List(ctx, query.Page(page))
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", page, err)
		}

		items = append(items, result.Items...)

		served := result.PerPage
		if served <= 0 || served > batch {
			served = batch
		}

		if len(result.Items) == 0 || len(result.Items) < served {
			return items, nil
		}
	}
}

// Update patches the record with the fields present in partial, which may be
// a map or a struct, and returns the stored version.
func (r *Records[T]) Update(ctx context.Context, id string, partial any) (*T, error) {
	err := requireID(id)
	if err != nil {
		return nil, err
	}

	body, err := Encode(partial)
	if err != nil {
		return nil, err
	}

	raw, err := r.coll.UpdateRecord(ctx, id, body)
	if err != nil {
		return nil, err
	}

	return decodeOne[T](raw)
}

// Delete removes a record.
func (r *Records[T]) Delete(ctx context.Context, id string) error {
	err := requireID(id)
	if err != nil {
		return err
	}

	return r.coll.DeleteRecord(ctx, id)
}

func decodeOne[T any](raw json.RawMessage) (*T, error) {
	record, err := Decode[T](raw)
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func requireID(id string) error {
	if id == "" {
		return &InvalidArgumentError{Argument: "id", Reason: "must not be empty"}
	}

	return nil
}

// ListCall is an immutable list request bound to a collection.
type ListCall[T any] struct {
	records *Records[T]
	query   ListQuery
}

// Query replaces the whole query.
func (c ListCall[T]) Query(query ListQuery) ListCall[T] {
	c.query = query

	return c
}

// Filter sets the filter expression.
func (c ListCall[T]) Filter(expr string) ListCall[T] {
	c.query = c.query.Filter(expr)

	return c
}

// Sort replaces the sort order.
func (c ListCall[T]) Sort(order string) ListCall[T] {
	c.query = c.query.Sort(order)

	return c
}

// Page sets the 1-based page number.
func (c ListCall[T]) Page(n int) ListCall[T] {
	c.query = c.query.Page(n)

	return c
}

// PerPage sets the page size.
func (c ListCall[T]) PerPage(n int) ListCall[T] {
	c.query = c.query.PerPage(n)

	return c
}

// Expand adds relation paths to expand.
func (c ListCall[T]) Expand(paths ...string) ListCall[T] {
	c.query = c.query.Expand(paths...)

	return c
}

// SkipTotal skips counting the totals.
func (c ListCall[T]) SkipTotal(skip bool) ListCall[T] {
	c.query = c.query.SkipTotal(skip)

	return c
}

// Call sends the request. Builder errors are reported here, before any I/O.
func (c ListCall[T]) Call(ctx context.Context) (*ListResult[T], error) {
	return c.records.List(ctx, c.query)
}
