package signal

import "strconv"

// Diff is the outcome of reconciling one fresh snapshot against the stored
// signals of the same trader.
type Diff struct {
	// Opened are snapshot entries with no stored signal under their key.
	Opened []PositionEntry
	// Closed are stored signals whose key is absent from the snapshot.
	Closed []*Signal
}

// Empty reports whether the diff carries no transitions.
func (d Diff) Empty() bool {
	return len(d.Opened) == 0 && len(d.Closed) == 0
}

// Reconcile computes the opened and closed sets for one trader cycle.
//
// It is a pure function of its inputs: keys are compared by exact equality,
// entry order never affects the result, and calling it twice with the same
// arguments yields the same diff. It must only be called with a snapshot from
// a successful fetch; a failed fetch means the trader's state is unknown for
// the cycle and no closes may be derived from it.
func Reconcile(fresh []PositionEntry, stored []*Signal) Diff {
	freshKeys := make(map[string]struct{}, len(fresh))
	for _, entry := range fresh {
		freshKeys[entry.SignalKey()] = struct{}{}
	}

	storedKeys := make(map[string]struct{}, len(stored))
	for _, sig := range stored {
		storedKeys[sig.SignalID] = struct{}{}
	}

	var diff Diff
	seen := make(map[string]struct{}, len(fresh))
	for _, entry := range fresh {
		key := entry.SignalKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := storedKeys[key]; !ok {
			diff.Opened = append(diff.Opened, entry)
		}
	}

	for _, sig := range stored {
		if _, ok := freshKeys[sig.SignalID]; !ok {
			diff.Closed = append(diff.Closed, sig)
		}
	}

	return diff
}

func parseMillis(v string) (int64, error) {
	return strconv.ParseInt(v, 10, 64)
}
