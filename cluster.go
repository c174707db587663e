package reviewdb

import "context"

// A Session is a short-lived handle onto the cluster. A Session serves exactly one logical
// operation and is closed when that operation ends.
type Session interface {
	Query(ctx context.Context, stmt CQL) Query
	Close() error
}

// A Query is the pending result of a single statement.
type Query interface {
	Exec() error
	Scan(...interface{}) bool
	Close() error
}

// A Dialer opens new sessions.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// DialerFunc adapts an ordinary function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Session, error)

func (f DialerFunc) Dial(ctx context.Context) (Session, error) { return f(ctx) }
