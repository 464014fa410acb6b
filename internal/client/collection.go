package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/fivetwenty-io/pocketbase-go/internal/constants"
	"github.com/fivetwenty-io/pocketbase-go/pkg/pocketbase"
)

// Collection implements pocketbase.Collection.
type Collection struct {
	name   string
	client *Client
}

// Name implements pocketbase.Collection.Name.
func (c *Collection) Name() string { return c.name }

func (c *Collection) basePath() string {
	return constants.CollectionsPath + "/" + url.PathEscape(c.name)
}

func (c *Collection) recordsPath() string {
	return c.basePath() + "/records"
}

func (c *Collection) recordPath(id string) string {
	return c.recordsPath() + "/" + url.PathEscape(id)
}

// CreateRecord implements pocketbase.Collection.CreateRecord.
func (c *Collection) CreateRecord(ctx context.Context, body []byte) (json.RawMessage, error) {
	resp, err := c.client.httpClient.Post(ctx, c.recordsPath(), body)
	if err != nil {
		return nil, fmt.Errorf("creating %s record: %w", c.name, err)
	}

	return resp.Body, nil
}

// GetRecord implements pocketbase.Collection.GetRecord.
func (c *Collection) GetRecord(ctx context.Context, id, query string) (json.RawMessage, error) {
	if id == "" {
		return nil, &pocketbase.InvalidArgumentError{Argument: "id", Reason: "must not be empty"}
	}

	resp, err := c.client.httpClient.Get(ctx, c.recordPath(id), query)
	if err != nil {
		return nil, fmt.Errorf("getting %s record %s: %w", c.name, id, err)
	}

	return resp.Body, nil
}

// ListRecords implements pocketbase.Collection.ListRecords.
func (c *Collection) ListRecords(ctx context.Context, query string) (json.RawMessage, error) {
	resp, err := c.client.httpClient.Get(ctx, c.recordsPath(), query)
	if err != nil {
		return nil, fmt.Errorf("listing %s records: %w", c.name, err)
	}

	return resp.Body, nil
}

// UpdateRecord implements pocketbase.Collection.UpdateRecord.
func (c *Collection) UpdateRecord(ctx context.Context, id string, body []byte) (json.RawMessage, error) {
	if id == "" {
		return nil, &pocketbase.InvalidArgumentError{Argument: "id", Reason: "must not be empty"}
	}

	resp, err := c.client.httpClient.Patch(ctx, c.recordPath(id), body)
	if err != nil {
		return nil, fmt.Errorf("updating %s record %s: %w", c.name, id, err)
	}

	return resp.Body, nil
}

// DeleteRecord implements pocketbase.Collection.DeleteRecord.
func (c *Collection) DeleteRecord(ctx context.Context, id string) error {
	if id == "" {
		return &pocketbase.InvalidArgumentError{Argument: "id", Reason: "must not be empty"}
	}

	_, err := c.client.httpClient.Delete(ctx, c.recordPath(id))
	if err != nil {
		return fmt.Errorf("deleting %s record %s: %w", c.name, id, err)
	}

	return nil
}

var _ pocketbase.Collection = (*Collection)(nil)
