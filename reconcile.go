package main

import "iter"

// Snapshot holds the most recent status per player seen in one scan window.
// Iteration follows insertion order, which is newest-first by construction.
type Snapshot struct {
	order  []string
	status map[string]Status
}

func NewSnapshot() *Snapshot {
	return &Snapshot{status: make(map[string]Status)}
}

// offer records status for player unless the player already has an entry.
func (s *Snapshot) offer(player string, status Status) {
	if _, ok := s.status[player]; ok {
		return
	}
	s.order = append(s.order, player)
	s.status[player] = status
}

func (s *Snapshot) Status(player string) (Status, bool) {
	st, ok := s.status[player]
	return st, ok
}

func (s *Snapshot) Len() int { return len(s.order) }

func (s *Snapshot) All() iter.Seq2[string, Status] {
	return func(yield func(string, Status) bool) {
		for _, p := range s.order {
			if !yield(p, s.status[p]) {
				return
			}
		}
	}
}

// Batch is the reconciled view of one window of lines.
type Batch struct {
	Snapshot  *Snapshot
	Messages  []ChatEvent
	Malformed []error
}

// Reconcile folds a window of raw lines, oldest first, into a presence snapshot
// and the chat messages in chronological order. Malformed lines are skipped and
// reported in Batch.Malformed.
func Reconcile(lines []string) Batch {
	events := make([]Event, len(lines))
	batch := Batch{Snapshot: NewSnapshot()}

	for i, line := range lines {
		ev, err := Classify(line)
		if err != nil {
			batch.Malformed = append(batch.Malformed, err)
			continue
		}
		events[i] = ev
	}

	// Newest line wins, so walk backwards.
	for i := len(events) - 1; i >= 0; i-- {
		if se, ok := events[i].(*StatusEvent); ok {
			batch.Snapshot.offer(se.Player, se.Status)
		}
	}

	for _, ev := range events {
		if ce, ok := ev.(*ChatEvent); ok {
			batch.Messages = append(batch.Messages, *ce)
		}
	}
	return batch
}
