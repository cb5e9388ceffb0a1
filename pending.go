package main

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const commandFileHeader = "## Incoming server messages:\n\n"

// serverAuthor is the name the server uses when echoing a `say` command into chat.
const serverAuthor = "Server"

// PendingMessages holds inbound messages until the server echoes them back
// into chat. Keys are the canonical chat key the echo is expected to have.
type PendingMessages struct {
	registry    *MapRegistry
	commandPath string
	now         func() time.Time
}

func NewPendingMessages(registry *MapRegistry, commandPath string) *PendingMessages {
	return &PendingMessages{
		registry:    registry,
		commandPath: commandPath,
		now:         time.Now,
	}
}

// Queue records an inbound message. It returns false if an identical message
// is already pending for the same second.
func (p *PendingMessages) Queue(text string) (bool, error) {
	key := ChatEvent{
		Player:    serverAuthor,
		Message:   text,
		Timestamp: p.now().UTC().Format(time.TimeOnly),
	}.Key()
	if p.registry.Contains(key) {
		return false, nil
	}
	return true, p.registry.Set(key, text)
}

// Flush drops entries whose echo is already in history and rewrites the
// command file from what remains. An empty command path only prunes.
func (p *PendingMessages) Flush(history Membership) ([]string, error) {
	var errs []error
	var remaining []string
	for key, text := range p.registry.Items() {
		if history.Contains(key) {
			if err := p.registry.Remove(key); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		remaining = append(remaining, text)
	}

	if p.commandPath != "" {
		if err := writeFileAtomic(p.commandPath, []byte(renderCommands(remaining))); err != nil {
			errs = append(errs, fmt.Errorf("command file: %w", err))
		}
	}
	return remaining, errors.Join(errs...)
}

func (p *PendingMessages) Len() int { return p.registry.Len() }

func renderCommands(messages []string) string {
	var b strings.Builder
	b.WriteString(commandFileHeader)
	for _, m := range messages {
		b.WriteString(sayCommand(m))
		b.WriteByte('\n')
	}
	return b.String()
}

// sayCommand builds a single-line `say` command from arbitrary text.
func sayCommand(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	return "say " + text
}
