package trader

// Registry defines the interface for the tracked-trader list.
//
// The list is owned by configuration: traders are loaded at startup and may
// have their upstream id replaced by an operator action, but are never
// removed during a run.
type Registry interface {
	// List returns a snapshot of all tracked traders.
	List() ([]Trader, error)

	// UpdateID replaces the upstream id of the trader at the given index and
	// persists the change. It returns the trader as it was before the update.
	UpdateID(index int, newID string) (Trader, error)

	// Get returns the trader at the given index.
	Get(index int) (Trader, error)
}
