package main

import (
	"context"
	"fmt"
	"log"
)

// BridgeSubscriber forwards notifiable GameEvents to the Bridge's event channel.
type BridgeSubscriber struct {
	events chan<- GameEvent
	cfg    *Config
}

func (s *BridgeSubscriber) OnGameEvent(event GameEvent) {
	if !s.cfg.notifyAllowed(event) {
		return
	}
	select {
	case s.events <- event:
	default:
		log.Printf("notification queue full, dropping %s event for %s", event.Type, event.Player)
	}
}

// Bridge fans out GameEvents to all channels and collects inbound messages
// for the watch loop, which is the only writer of pending state.
type Bridge struct {
	channels []Channel
	events   chan GameEvent
	inbound  chan InboundMessage
}

func NewBridge(channels []Channel) *Bridge {
	return &Bridge{
		channels: channels,
		events:   make(chan GameEvent, 100),
		inbound:  make(chan InboundMessage, 100),
	}
}

// Subscriber returns an EventSubscriber feeding this bridge.
func (b *Bridge) Subscriber(cfg *Config) *BridgeSubscriber {
	return &BridgeSubscriber{events: b.events, cfg: cfg}
}

// Inbound returns messages received from all channels.
func (b *Bridge) Inbound() <-chan InboundMessage {
	return b.inbound
}

// FanOutEvents reads events and sends them to all channels.
func (b *Bridge) FanOutEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-b.events:
			b.deliver(ctx, event)
		}
	}
}

func (b *Bridge) deliver(ctx context.Context, event GameEvent) {
	for _, ch := range b.channels {
		if err := ch.Send(ctx, event); err != nil {
			log.Printf("send to %s: %v", ch.Name(), err)
		}
	}
}

// HandleInbound forwards messages from a channel until ctx is done.
func (b *Bridge) HandleInbound(ctx context.Context, ch Channel) {
	msgs := ch.Messages()
	if msgs == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			select {
			case b.inbound <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

// inboundText renders an inbound message as the line the server should say.
func inboundText(msg InboundMessage) string {
	return fmt.Sprintf("[%s] %s: %s", msg.Source, msg.Author, msg.Content)
}
