package traderfile

import (
	"encoding/json"
	"os"
	"sync"

	"traderwatch/internal/domain/trader"
	"traderwatch/pkg/errors"
	"traderwatch/pkg/logger"
)

// Compile-time check
var _ trader.Registry = (*Registry)(nil)

// Registry persists the tracked-trader list in a JSON file. Operators edit
// the list through the Telegram bot; every mutation is written back so a
// restart picks up the current ids.
type Registry struct {
	path string
	mu   sync.Mutex
	log  *logger.Logger
}

type fileFormat struct {
	Traders []trader.Trader `json:"traders"`
}

// NewRegistry opens the registry at path, bootstrapping the file with a
// sample entry when it does not exist yet.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{
		path: path,
		log:  logger.Get().With("component", "trader_registry"),
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		defaults := fileFormat{Traders: []trader.Trader{{
			ID:          "3C0A650E43C9F05F",
			Name:        "Trader 1",
			Description: "Top Trader OKX",
		}}}
		if err := r.write(defaults); err != nil {
			return nil, errors.Wrap(err, "failed to bootstrap traders file")
		}
		r.log.Infow("Bootstrapped traders file", "path", path)
	}

	// Validate the file parses before handing out the registry.
	if _, err := r.read(); err != nil {
		return nil, err
	}

	return r, nil
}

// List returns a snapshot of all tracked traders.
func (r *Registry) List() ([]trader.Trader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.read()
	if err != nil {
		return nil, err
	}
	return data.Traders, nil
}

// Get returns the trader at the given index.
func (r *Registry) Get(index int) (trader.Trader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.read()
	if err != nil {
		return trader.Trader{}, err
	}
	if index < 0 || index >= len(data.Traders) {
		return trader.Trader{}, errors.Wrapf(errors.ErrNotFound, "trader index %d", index)
	}
	return data.Traders[index], nil
}

// UpdateID replaces the upstream id of the trader at index and persists the
// change. Returns the trader as it was before the update.
func (r *Registry) UpdateID(index int, newID string) (trader.Trader, error) {
	if newID == "" {
		return trader.Trader{}, errors.Wrap(errors.ErrInvalidInput, "empty trader id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.read()
	if err != nil {
		return trader.Trader{}, err
	}
	if index < 0 || index >= len(data.Traders) {
		return trader.Trader{}, errors.Wrapf(errors.ErrNotFound, "trader index %d", index)
	}

	previous := data.Traders[index]
	data.Traders[index].ID = newID

	if err := r.write(data); err != nil {
		return trader.Trader{}, errors.Wrap(err, "failed to persist trader id change")
	}

	r.log.Infow("Trader id updated",
		"trader", previous.Name,
		"old_id", previous.ID,
		"new_id", newID,
	)
	return previous, nil
}

func (r *Registry) read() (fileFormat, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fileFormat{}, errors.Wrap(err, "failed to read traders file")
	}

	var data fileFormat
	if err := json.Unmarshal(raw, &data); err != nil {
		return fileFormat{}, errors.Wrap(err, "invalid traders file")
	}
	if data.Traders == nil {
		return fileFormat{}, errors.Wrap(errors.ErrInvalidInput, "traders file missing traders key")
	}
	return data, nil
}

func (r *Registry) write(data fileFormat) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, raw, 0o644)
}
