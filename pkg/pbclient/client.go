// Package pbclient provides the main entry point for creating PocketBase API clients
package pbclient

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/pocketbase-go/internal/client"
	"github.com/fivetwenty-io/pocketbase-go/pkg/pocketbase"
)

// New creates a new PocketBase client with an empty session.
func New(config *pocketbase.Config) (pocketbase.Client, error) {
	c, err := client.New(config)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// NewWithBaseURL creates a new client with just a base URL (no auth).
func NewWithBaseURL(baseURL string) (pocketbase.Client, error) {
	return New(&pocketbase.Config{BaseURL: baseURL})
}

// NewWithAuth creates a client that starts out holding session, e.g. one
// saved by a previous process. collection is the auth collection the
// session's record belongs to.
func NewWithAuth(config *pocketbase.Config, session pocketbase.AuthResult, collection string) (pocketbase.Client, error) {
	c, err := client.New(config)
	if err != nil {
		return nil, err
	}

	err = c.Restore(session, collection)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// NewWithPassword creates a client and authenticates it against the auth
// collection with identity and password.
func NewWithPassword(ctx context.Context, config *pocketbase.Config, collection, identity, password string) (pocketbase.Client, error) {
	c, err := New(config)
	if err != nil {
		return nil, err
	}

	coll, err := c.Collection(collection)
	if err != nil {
		return nil, err
	}

	_, err = coll.AuthWithPassword(ctx, identity, password)
	if err != nil {
		return nil, fmt.Errorf("authenticating against %s: %w", collection, err)
	}

	return c, nil
}

// NewSuperuser creates a client authenticated as a superuser.
func NewSuperuser(ctx context.Context, config *pocketbase.Config, email, password string) (pocketbase.Client, error) {
	return NewWithPassword(ctx, config, pocketbase.SuperusersCollection, email, password)
}
