package main

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageDeduplicator_FilterNew(t *testing.T) {
	history := OpenListRegistry(filepath.Join(t.TempDir(), "chat.json"), 100)
	dedup := NewMessageDeduplicator(history)

	msgs := []ChatEvent{
		{Player: "Ann", Message: "hi", Timestamp: "10:00:00"},
		{Player: "Bob", Message: "yo", Timestamp: "10:00:01"},
	}

	first, err := dedup.FilterNew(msgs)
	require.NoError(t, err)
	assert.Equal(t, msgs, first)

	second, err := dedup.FilterNew(msgs)
	require.NoError(t, err)
	assert.Empty(t, second)

	assert.Equal(t, []string{
		"[10:00:00] <Ann> hi",
		"[10:00:01] <Bob> yo",
	}, slices.Collect(history.All()))
}

func TestMessageDeduplicator_SameTextDifferentTime(t *testing.T) {
	dedup := NewMessageDeduplicator(OpenListRegistry(filepath.Join(t.TempDir(), "chat.json"), 100))

	got, err := dedup.FilterNew([]ChatEvent{
		{Player: "Ann", Message: "hi", Timestamp: "10:00:00"},
		{Player: "Ann", Message: "hi", Timestamp: "10:00:00"},
		{Player: "Ann", Message: "hi", Timestamp: "10:00:09"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "10:00:09", got[1].Timestamp)
}

func TestMessageDeduplicator_PartialOverlapKeepsOrder(t *testing.T) {
	dedup := NewMessageDeduplicator(OpenListRegistry(filepath.Join(t.TempDir(), "chat.json"), 100))
	a := ChatEvent{Player: "A", Message: "1", Timestamp: "10:00:01"}
	b := ChatEvent{Player: "B", Message: "2", Timestamp: "10:00:02"}
	c := ChatEvent{Player: "C", Message: "3", Timestamp: "10:00:03"}

	_, err := dedup.FilterNew([]ChatEvent{a, b})
	require.NoError(t, err)

	got, err := dedup.FilterNew([]ChatEvent{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, []ChatEvent{c}, got)
}
