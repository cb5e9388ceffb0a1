package main

import "context"

// Channel abstracts an external chat platform (Discord, console, etc.).
// Send must not be relied on for state: a failed send is reported and dropped.
type Channel interface {
	Name() string
	Send(ctx context.Context, event GameEvent) error
	Messages() <-chan InboundMessage
	Start(ctx context.Context) error
	Close() error
}
