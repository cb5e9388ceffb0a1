package main

import "time"

// Status is a player's presence as announced by the server.
type Status string

const (
	StatusJoined Status = "joined"
	StatusLeft   Status = "left"
)

// statusPhrases maps the exact payload remainder to a Status.
var statusPhrases = map[string]Status{
	"joined the game": StatusJoined,
	"left the game":   StatusLeft,
}

// Event is the result of classifying one log line: *StatusEvent or *ChatEvent.
// A nil Event means the line was not recognized.
type Event interface {
	eventType() string
}

// StatusEvent is a join or leave announcement.
type StatusEvent struct {
	Player string
	Status Status
}

func (*StatusEvent) eventType() string { return "status" }

// ChatEvent is a player chat line. Timestamp is the bracketed time prefix of the raw line.
type ChatEvent struct {
	Player    string `json:"player"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (*ChatEvent) eventType() string { return "chat" }

// Key renders the canonical dedup key: "[timestamp] <player> message".
func (c ChatEvent) Key() string {
	return "[" + c.Timestamp + "] <" + c.Player + "> " + c.Message
}

// Transition is an actual change of the online registry.
type Transition struct {
	Player string `json:"player"`
	Kind   Status `json:"kind"`
}

// GameEvent is what notification channels consume.
type GameEvent struct {
	Type    string    `json:"type"` // "chat", "join", "leave"
	Player  string    `json:"player,omitempty"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

func (t Transition) toGameEvent(now time.Time) GameEvent {
	typ := "join"
	if t.Kind == StatusLeft {
		typ = "leave"
	}
	return GameEvent{Type: typ, Player: t.Player, Time: now}
}

func (c ChatEvent) toGameEvent(now time.Time) GameEvent {
	return GameEvent{Type: "chat", Player: c.Player, Message: c.Message, Time: now}
}

// InboundMessage represents a message from an external channel destined for the server.
type InboundMessage struct {
	Source  string // Channel name (e.g., "Discord")
	Author  string
	Content string
}

// EventSubscriber receives notifications produced by a scan cycle.
type EventSubscriber interface {
	OnGameEvent(event GameEvent)
}
