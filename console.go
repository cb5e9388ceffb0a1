package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// ValidFormats lists the console output formats.
var ValidFormats = map[string]bool{
	"jsonl":  true,
	"pretty": true,
}

// ConsoleChannel writes notifications to a stream. It never receives messages.
type ConsoleChannel struct {
	format string
	mu     sync.Mutex
	w      io.Writer
}

func NewConsoleChannel(format string, w io.Writer) *ConsoleChannel {
	return &ConsoleChannel{format: format, w: w}
}

func (c *ConsoleChannel) Name() string { return "console" }

func (c *ConsoleChannel) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (c *ConsoleChannel) Send(_ context.Context, event GameEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := OutputEvent(c.format, event, c.w); err != nil {
		return fmt.Errorf("%w: console: %v", ErrTransport, err)
	}
	return nil
}

func (c *ConsoleChannel) Messages() <-chan InboundMessage { return nil }

func (c *ConsoleChannel) Close() error { return nil }

// OutputEvent writes event to w in the given format.
func OutputEvent(format string, event GameEvent, w io.Writer) error {
	switch format {
	case "jsonl":
		return OutputJSON(event, w)
	case "pretty":
		return OutputPretty(event, w)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// OutputJSON writes event as a single JSON line.
func OutputJSON(v any, w io.Writer) error {
	return json.NewEncoder(w).Encode(v)
}

// OutputPretty writes event in a short human-readable form.
func OutputPretty(event GameEvent, w io.Writer) error {
	ts := event.Time.Format("15:04:05")
	var err error
	switch event.Type {
	case "join":
		_, err = fmt.Fprintf(w, "[%s] + %s joined\n", ts, event.Player)
	case "leave":
		_, err = fmt.Fprintf(w, "[%s] - %s left\n", ts, event.Player)
	case "chat":
		_, err = fmt.Fprintf(w, "[%s] <%s> %s\n", ts, event.Player, event.Message)
	default:
		_, err = fmt.Fprintf(w, "[%s] %s %s\n", ts, event.Type, event.Player)
	}
	return err
}
