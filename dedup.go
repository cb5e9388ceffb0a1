package main

import "errors"

// MessageDeduplicator drops chat lines already recorded in a bounded history.
type MessageDeduplicator struct {
	history Membership
}

func NewMessageDeduplicator(history Membership) *MessageDeduplicator {
	return &MessageDeduplicator{history: history}
}

// FilterNew returns messages whose canonical key is not in the history, in
// input order, and appends their keys to the history.
func (d *MessageDeduplicator) FilterNew(messages []ChatEvent) ([]ChatEvent, error) {
	var fresh []ChatEvent
	var errs []error
	for _, m := range messages {
		key := m.Key()
		if d.history.Contains(key) {
			continue
		}
		if err := d.history.Add(key); err != nil {
			errs = append(errs, err)
		}
		fresh = append(fresh, m)
	}
	return fresh, errors.Join(errs...)
}
