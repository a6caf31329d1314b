// Package storedex embeds the storedex catalog engine in-process.
//
// The client wires the same storage, indexing and ranking stack the HTTP
// server uses, backed by an in-memory store (default) or Redis/Valkey.
//
//	client, _ := storedex.New(ctx, storedex.WithValkey("localhost:6379", ""))
//	defer client.Close()
//
//	s, _ := client.Stores().Create(ctx, storedex.NewStore{
//	    Name:        "Joe's Cafe",
//	    Address:     "1 Main St",
//	    Coordinates: storedex.Point{Lng: -73.98, Lat: 40.75},
//	    AuthorID:    "user-1",
//	})
//	hits, _ := client.Search().Text(ctx, "coffee", 10)
//	near, _ := client.Search().Near(ctx, -73.98, 40.75, 0, 10)
//	top, _ := client.Ratings().Top(ctx, 10, 2)
package storedex
