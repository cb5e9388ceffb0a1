package main

import (
	"context"
	"errors"
	"log"
	"time"
)

// RelayState is the durable state shared across scan cycles.
type RelayState struct {
	Online  *ListRegistry
	History *ListRegistry
	Pending *PendingMessages
}

// OpenRelayState loads (or creates) every registry under cfg.State.Dir.
func OpenRelayState(cfg *Config) *RelayState {
	return &RelayState{
		Online:  OpenListRegistry(cfg.onlinePlayersPath(), 0),
		History: OpenListRegistry(cfg.chatLogPath(), cfg.State.ChatHistory),
		Pending: NewPendingMessages(OpenMapRegistry(cfg.pendingMessagesPath()), cfg.Commands.File),
	}
}

// CycleResult is what one scan produced.
type CycleResult struct {
	Transitions []Transition
	Messages    []ChatEvent
}

// WatchLoop scans the trailing window of a log source on a fixed interval.
// Cycles never overlap and every registry write happens inside the cycle.
type WatchLoop struct {
	source      LogSource
	window      int
	interval    time.Duration
	state       *RelayState
	tracker     *PresenceTracker
	dedup       *MessageDeduplicator
	sender      CommandSender
	inbound     <-chan InboundMessage
	subscribers []EventSubscriber
	metrics     *relayMetrics
	now         func() time.Time
}

func NewWatchLoop(source LogSource, state *RelayState, window int, interval time.Duration, metrics *relayMetrics) *WatchLoop {
	return &WatchLoop{
		source:   source,
		window:   window,
		interval: interval,
		state:    state,
		tracker:  NewPresenceTracker(state.Online),
		dedup:    NewMessageDeduplicator(state.History),
		metrics:  metrics,
		now:      time.Now,
	}
}

func (w *WatchLoop) Subscribe(sub EventSubscriber) {
	w.subscribers = append(w.subscribers, sub)
}

// AcceptInbound makes the loop pick up messages from ch each cycle. A non-nil
// sender delivers them right away; otherwise they go through the command file.
func (w *WatchLoop) AcceptInbound(ch <-chan InboundMessage, sender CommandSender) {
	w.inbound = ch
	w.sender = sender
}

// Run scans immediately, then every interval until ctx is done.
func (w *WatchLoop) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Cycle(ctx)
		}
	}
}

// Cycle performs one complete scan. Failures are logged and never stop the loop.
func (w *WatchLoop) Cycle(ctx context.Context) CycleResult {
	w.drainInbound(ctx)

	lines, err := w.source.Tail(ctx, w.window)
	if err != nil {
		if ctx.Err() != nil {
			return CycleResult{}
		}
		log.Printf("read %s: %v", w.source.Name(), err)
		w.metrics.sourceErrors.Add(ctx, 1)
		lines = nil
	}
	w.metrics.lines.Add(ctx, int64(len(lines)))

	batch := Reconcile(lines)
	if n := len(batch.Malformed); n > 0 {
		log.Printf("skipped %d malformed lines (first: %v)", n, batch.Malformed[0])
		w.metrics.malformed.Add(ctx, int64(n))
	}

	messages, err := w.dedup.FilterNew(batch.Messages)
	w.reportPersistence(ctx, "chat history", err)

	transitions, err := w.tracker.Update(batch.Snapshot)
	w.reportPersistence(ctx, "online players", err)

	_, err = w.state.Pending.Flush(w.state.History)
	w.reportPersistence(ctx, "pending messages", err)

	now := w.now()
	for _, m := range messages {
		w.publish(m.toGameEvent(now))
	}
	for _, t := range transitions {
		w.publish(t.toGameEvent(now))
	}

	if len(transitions) > 0 {
		log.Printf("currently in server: %s", w.state.Online)
	}

	w.metrics.cycles.Add(ctx, 1)
	w.metrics.messages.Add(ctx, int64(len(messages)))
	w.metrics.recordTransitions(ctx, transitions)
	w.metrics.online.Record(ctx, int64(w.state.Online.Len()))
	w.metrics.pending.Record(ctx, int64(w.state.Pending.Len()))

	return CycleResult{Transitions: transitions, Messages: messages}
}

func (w *WatchLoop) drainInbound(ctx context.Context) {
	if w.inbound == nil {
		return
	}
	for {
		select {
		case msg := <-w.inbound:
			w.queueInbound(ctx, msg)
		default:
			return
		}
	}
}

// queueInbound delivers msg over the sender when there is one. Messages the
// sender could not deliver, or all of them without a sender, wait in the
// pending registry and the command file until the server echoes them.
func (w *WatchLoop) queueInbound(ctx context.Context, msg InboundMessage) {
	text := inboundText(msg)
	if w.sender != nil {
		err := w.sender.Say(text)
		if err == nil {
			return
		}
		log.Printf("deliver message from %s: %v", msg.Author, err)
	}
	_, err := w.state.Pending.Queue(text)
	w.reportPersistence(ctx, "pending messages", err)
}

func (w *WatchLoop) publish(event GameEvent) {
	for _, sub := range w.subscribers {
		sub.OnGameEvent(event)
	}
}

func (w *WatchLoop) reportPersistence(ctx context.Context, what string, err error) {
	if err == nil {
		return
	}
	log.Printf("persist %s: %v", what, err)
	if errors.Is(err, ErrPersistenceWrite) {
		w.metrics.persistErrors.Add(ctx, 1)
	}
}
