package main

import "errors"

// PresenceTracker reconciles snapshots against the registry of online players.
type PresenceTracker struct {
	online Membership
}

func NewPresenceTracker(online Membership) *PresenceTracker {
	return &PresenceTracker{online: online}
}

// Update applies snapshot to the registry and returns the transitions that
// changed it, in snapshot order. Players that scrolled out of the window are
// dropped silently. Persistence failures are joined into the returned error;
// the transitions are still valid since memory has been updated.
func (p *PresenceTracker) Update(snapshot *Snapshot) ([]Transition, error) {
	var errs []error

	for player := range p.online.All() {
		if _, seen := snapshot.Status(player); !seen {
			if err := p.online.Remove(player); err != nil {
				errs = append(errs, err)
			}
		}
	}

	var transitions []Transition
	for player, status := range snapshot.All() {
		registered := p.online.Contains(player)
		switch {
		case status == StatusLeft && registered:
			if err := p.online.Remove(player); err != nil {
				errs = append(errs, err)
			}
			transitions = append(transitions, Transition{Player: player, Kind: StatusLeft})
		case status == StatusJoined && !registered:
			if err := p.online.Add(player); err != nil {
				errs = append(errs, err)
			}
			transitions = append(transitions, Transition{Player: player, Kind: StatusJoined})
		}
	}
	return transitions, errors.Join(errs...)
}
