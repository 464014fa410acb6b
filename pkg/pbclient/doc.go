// Package pbclient provides the primary entry point for constructing a
// PocketBase API client that implements the pocketbase.Client interface.
//
// It layers configuration, HTTP transport and session storage on top of the
// interfaces and types defined in the pocketbase package. Most applications
// should import pbclient to build a client, then use pocketbase.CollectionOf
// for typed record access.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/pocketbase-go/pkg/pbclient"
//	  "github.com/fivetwenty-io/pocketbase-go/pkg/pocketbase"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // Minimal: just a base URL (no auth).
//	  cli, err := pbclient.NewWithBaseURL("http://127.0.0.1:8090")
//	  if err != nil { log.Fatal(err) }
//
//	  // Or authenticate as a superuser straight away, with retries for reads:
//	  cli, err = pbclient.NewSuperuser(ctx, &pocketbase.Config{
//	    BaseURL:  "http://127.0.0.1:8090",
//	    RetryMax: 3,
//	  }, "admin@example.com", "secret")
//	  if err != nil { log.Fatal(err) }
//
//	  articles, _ := pocketbase.CollectionOf[pocketbase.Record](cli, "articles")
//	  page, err := articles.GetList().Sort("-created,id").Call(ctx)
//	  if err != nil { log.Fatal(err) }
//	  log.Printf("%d of %d articles", len(page.Items), page.TotalItems)
//	}
//
// Configuration notes
//   - BaseURL must be an absolute http or https URL; a trailing slash is trimmed.
//   - Requests have no timeout and are not retried unless HTTPTimeout and
//     RetryMax are set. Only idempotent methods are ever retried.
//   - Logger with Debug logs each request and response, with the
//     Authorization header redacted.
package pbclient
