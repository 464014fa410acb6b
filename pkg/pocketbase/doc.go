// Package pocketbase provides types, interfaces, and helpers for working with
// the PocketBase REST API.
//
// # Overview
//
// The pocketbase package defines the record envelope types (BaseRecord,
// Record, ListResult), the Client and Collection interfaces, the list query
// builder, the JSON codec and the error taxonomy. A concrete client is
// provided by the pbclient package, which wires configuration, transport and
// session storage. Most consumers construct a client with pbclient and then
// work through the typed Records API exposed here.
//
// Getting a client
//
//	type Post struct {
//	  pocketbase.BaseRecord
//	  Title string `json:"title" pb:"required"`
//	}
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := pbclient.NewWithBaseURL("http://127.0.0.1:8090")
//	  if err != nil { log.Fatal(err) }
//
//	  users, _ := cli.Collection("users")
//	  if _, err := users.AuthWithPassword(ctx, "a@example.com", "secret"); err != nil {
//	    log.Fatal(err)
//	  }
//
//	  posts, err := pocketbase.CollectionOf[Post](cli, "posts")
//	  if err != nil { log.Fatal(err) }
//
//	  page, err := posts.GetList().Filter("status = 'published'").Sort("-created").PerPage(20).Call(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = page
//	}
//
// # Queries
//
// ListQuery is an immutable value. Every method returns a new query, and an
// invalid argument is remembered and reported by Encode or by the terminal
// call before any network access. Parameters are written in a fixed order
// (filter, sort, page, perPage, expand, skipTotal) so equal queries encode to
// equal strings.
//
// # Errors
//
// Every failure is one of the typed errors in errors.go. Use errors.As for
// the details, errors.Is against the Err* sentinels, or KindOf for a single
// classification:
//
//	_, err := posts.GetOne(ctx, id)
//	switch {
//	case pocketbase.IsNotFound(err):
//	  // ...
//	case pocketbase.IsValidation(err):
//	  var verr *pocketbase.ValidationError
//	  errors.As(err, &verr)
//	}
//
// # Caching
//
// Config.Cache enables caching of successful GET responses. Keys include the
// session token, and every successful write clears the cache. MemoryCache,
// NATSKVCache (a JetStream key-value bucket shared between processes) and
// CacheChain (layered caches) are provided.
package pocketbase
