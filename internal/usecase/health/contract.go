package health

import "context"

// DBPinger checks storage availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// IndexState reports whether the search indexes have been built.
type IndexState interface {
	Ready() bool
	Len() int
}
