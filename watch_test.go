package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
)

// fakeSource serves a fixed window and can be told to fail.
type fakeSource struct {
	lines []string
	err   error
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Tail(_ context.Context, n int) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.lines) > n {
		return s.lines[len(s.lines)-n:], nil
	}
	return s.lines, nil
}

type recordingSubscriber struct {
	mu     sync.Mutex
	events []GameEvent
}

func (r *recordingSubscriber) OnGameEvent(e GameEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

type fakeSender struct {
	said []string
	err  error
}

func (f *fakeSender) Say(text string) error {
	f.said = append(f.said, text)
	return f.err
}

func newTestMetrics(t *testing.T) *relayMetrics {
	t.Helper()
	m, err := newRelayMetrics(metricnoop.NewMeterProvider())
	require.NoError(t, err)
	return m
}

func newTestLoop(t *testing.T, src LogSource) (*WatchLoop, *Config) {
	t.Helper()
	cfg := defaultConfig()
	cfg.State.Dir = t.TempDir()
	cfg.Commands.File = filepath.Join(cfg.State.Dir, "new_messages.mcfunction")

	loop := NewWatchLoop(src, OpenRelayState(&cfg), 100, time.Hour, newTestMetrics(t))
	loop.now = func() time.Time { return time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC) }
	return loop, &cfg
}

func TestWatchLoop_Scenario(t *testing.T) {
	src := &fakeSource{lines: []string{
		"[10:00:00] [Server thread/INFO]: Ann joined the game",
		"[10:00:05] [Server thread/INFO]: <Ann> hello",
	}}
	loop, _ := newTestLoop(t, src)
	sub := &recordingSubscriber{}
	loop.Subscribe(sub)

	res := loop.Cycle(context.Background())
	assert.Equal(t, []Transition{{Player: "Ann", Kind: StatusJoined}}, res.Transitions)
	assert.Equal(t, []ChatEvent{{Player: "Ann", Message: "hello", Timestamp: "10:00:05"}}, res.Messages)

	require.Len(t, sub.events, 2)
	assert.Equal(t, "chat", sub.events[0].Type)
	assert.Equal(t, "join", sub.events[1].Type)

	// Same window again: nothing new.
	res = loop.Cycle(context.Background())
	assert.Empty(t, res.Transitions)
	assert.Empty(t, res.Messages)
	assert.Len(t, sub.events, 2)
}

func TestWatchLoop_StatePersistsAcrossRestart(t *testing.T) {
	src := &fakeSource{lines: []string{
		"[10:00:00] [Server thread/INFO]: Ann joined the game",
		"[10:00:05] [Server thread/INFO]: <Ann> hello",
	}}
	loop, cfg := newTestLoop(t, src)
	loop.Cycle(context.Background())

	restarted := NewWatchLoop(src, OpenRelayState(cfg), 100, time.Hour, newTestMetrics(t))
	res := restarted.Cycle(context.Background())
	assert.Empty(t, res.Transitions)
	assert.Empty(t, res.Messages)
}

func TestWatchLoop_LeaveAfterJoin(t *testing.T) {
	src := &fakeSource{lines: []string{
		"[10:00:00] [Server thread/INFO]: Ann joined the game",
	}}
	loop, _ := newTestLoop(t, src)
	loop.Cycle(context.Background())

	src.lines = append(src.lines, "[10:30:00] [Server thread/INFO]: Ann left the game")
	res := loop.Cycle(context.Background())
	assert.Equal(t, []Transition{{Player: "Ann", Kind: StatusLeft}}, res.Transitions)
	assert.Equal(t, 0, loop.state.Online.Len())
}

func TestWatchLoop_SourceUnavailableIsEmptyScan(t *testing.T) {
	src := &fakeSource{lines: []string{
		"[10:00:00] [Server thread/INFO]: Ann joined the game",
	}}
	loop, _ := newTestLoop(t, src)
	loop.Cycle(context.Background())
	require.Equal(t, 1, loop.state.Online.Len())

	src.err = errors.Join(ErrSourceUnavailable, os.ErrNotExist)
	res := loop.Cycle(context.Background())
	assert.Empty(t, res.Transitions)
	assert.Equal(t, 0, loop.state.Online.Len())
}

func TestWatchLoop_InboundMessagesViaCommandFile(t *testing.T) {
	src := &fakeSource{}
	loop, cfg := newTestLoop(t, src)
	loop.state.Pending.now = func() time.Time { return time.Date(2026, 1, 2, 10, 0, 1, 0, time.UTC) }

	inbound := make(chan InboundMessage, 2)
	loop.AcceptInbound(inbound, nil)

	inbound <- InboundMessage{Source: "Discord", Author: "bob", Content: "hi"}
	loop.Cycle(context.Background())

	assert.Equal(t, 1, loop.state.Pending.Len())
	data, err := os.ReadFile(cfg.Commands.File)
	require.NoError(t, err)
	assert.Equal(t, commandFileHeader+"say [Discord] bob: hi\n", string(data))

	// The server runs the command file and echoes the say; the pending entry is dropped.
	src.lines = []string{"[10:00:01] [Server thread/INFO]: [Server] [Discord] bob: hi"}
	res := loop.Cycle(context.Background())
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "Server", res.Messages[0].Player)
	assert.Equal(t, 0, loop.state.Pending.Len())

	data, err = os.ReadFile(cfg.Commands.File)
	require.NoError(t, err)
	assert.Equal(t, commandFileHeader, string(data))
}

func TestWatchLoop_InboundMessagesViaSender(t *testing.T) {
	src := &fakeSource{}
	loop, cfg := newTestLoop(t, src)

	inbound := make(chan InboundMessage, 2)
	sender := &fakeSender{}
	loop.AcceptInbound(inbound, sender)

	inbound <- InboundMessage{Source: "Discord", Author: "bob", Content: "hi"}
	loop.Cycle(context.Background())

	assert.Equal(t, []string{"[Discord] bob: hi"}, sender.said)
	assert.Equal(t, 0, loop.state.Pending.Len())

	// RCON echoes under its own name; nothing is left to announce again.
	src.lines = []string{"[10:00:01] [Server thread/INFO]: [Rcon] [Discord] bob: hi"}
	res := loop.Cycle(context.Background())
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "Rcon", res.Messages[0].Player)
	assert.Equal(t, 0, loop.state.Pending.Len())
	assert.Len(t, sender.said, 1)

	data, err := os.ReadFile(cfg.Commands.File)
	require.NoError(t, err)
	assert.Equal(t, commandFileHeader, string(data))
}

func TestWatchLoop_SenderFailureDoesNotStopCycle(t *testing.T) {
	src := &fakeSource{lines: []string{"[10:00:00] [Server thread/INFO]: Ann joined the game"}}
	loop, _ := newTestLoop(t, src)

	inbound := make(chan InboundMessage, 1)
	loop.AcceptInbound(inbound, &fakeSender{err: ErrTransport})
	inbound <- InboundMessage{Source: "Discord", Author: "bob", Content: "hi"}

	res := loop.Cycle(context.Background())
	assert.Len(t, res.Transitions, 1)
	// Undelivered messages fall back to the command file.
	assert.Equal(t, 1, loop.state.Pending.Len())
}

func TestWatchLoop_RunStopsOnCancel(t *testing.T) {
	src := &fakeSource{lines: []string{"[10:00:00] [Server thread/INFO]: Ann joined the game"}}
	loop, cfg := newTestLoop(t, src)
	loop.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	online := OpenListRegistry(cfg.onlinePlayersPath(), 0)
	assert.Equal(t, []string{"Ann"}, slices.Collect(online.All()))
}
