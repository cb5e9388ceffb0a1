package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotEntries(s *Snapshot) [][2]string {
	var out [][2]string
	for p, st := range s.All() {
		out = append(out, [2]string{p, string(st)})
	}
	return out
}

func TestReconcile_Scenario(t *testing.T) {
	batch := Reconcile([]string{
		"[10:00:00] [Server thread/INFO]: Ann joined the game",
		"[10:00:05] [Server thread/INFO]: <Ann> hello",
	})

	st, ok := batch.Snapshot.Status("Ann")
	require.True(t, ok)
	assert.Equal(t, StatusJoined, st)
	assert.Equal(t, 1, batch.Snapshot.Len())
	assert.Equal(t, []ChatEvent{{Player: "Ann", Message: "hello", Timestamp: "10:00:05"}}, batch.Messages)
	assert.Empty(t, batch.Malformed)
}

func TestReconcile_NewestWins(t *testing.T) {
	batch := Reconcile([]string{
		"[10:00:00] [Server thread/INFO]: X joined the game",
		"[10:05:00] [Server thread/INFO]: X left the game",
	})
	st, _ := batch.Snapshot.Status("X")
	assert.Equal(t, StatusLeft, st)

	batch = Reconcile([]string{
		"[10:00:00] [Server thread/INFO]: X left the game",
		"[10:05:00] [Server thread/INFO]: X joined the game",
	})
	st, _ = batch.Snapshot.Status("X")
	assert.Equal(t, StatusJoined, st)
}

func TestReconcile_SnapshotOrderIsNewestFirst(t *testing.T) {
	batch := Reconcile([]string{
		"[10:00:00] [Server thread/INFO]: A joined the game",
		"[10:00:01] [Server thread/INFO]: B joined the game",
		"[10:00:02] [Server thread/INFO]: A left the game",
		"[10:00:03] [Server thread/INFO]: C joined the game",
	})
	assert.Equal(t, [][2]string{
		{"C", "joined"},
		{"A", "left"},
		{"B", "joined"},
	}, snapshotEntries(batch.Snapshot))
}

func TestReconcile_MessagesChronological(t *testing.T) {
	batch := Reconcile([]string{
		"[10:00:01] [Server thread/INFO]: <A> one",
		"[10:00:02] [Server thread/INFO]: B joined the game",
		"[10:00:03] [Server thread/INFO]: <B> two",
		"[10:00:04] [Server thread/INFO]: [Not Secure] <A> three",
	})
	require.Len(t, batch.Messages, 3)
	assert.Equal(t, "one", batch.Messages[0].Message)
	assert.Equal(t, "two", batch.Messages[1].Message)
	assert.Equal(t, "three", batch.Messages[2].Message)
}

func TestReconcile_SkipsMalformed(t *testing.T) {
	batch := Reconcile([]string{
		"[10:00:00] [Server thread/INFO]: <broken>",
		"[10:00:01] [Server thread/INFO]: Ann joined the game",
		"[10:00:02] [Server thread/INFO]: <> nobody",
		"[10:00:03] [Server thread/INFO]: <Ann> still here",
	})
	assert.Len(t, batch.Malformed, 2)
	assert.Equal(t, 1, batch.Snapshot.Len())
	assert.Len(t, batch.Messages, 1)
}

func TestReconcile_Empty(t *testing.T) {
	batch := Reconcile(nil)
	assert.Equal(t, 0, batch.Snapshot.Len())
	assert.Empty(t, batch.Messages)
}
