package trader

// Trader identifies one tracked copy-trading account on the upstream venue.
type Trader struct {
	// ID is the opaque upstream identifier (OKX uniqueName). Operators may
	// reassign it at runtime; the next poll cycle must use the new value.
	ID string `json:"id"`

	// Name is the display label used in notifications.
	Name string `json:"name"`

	Description string `json:"description,omitempty"`
}

// Valid reports whether the trader carries the minimum required fields.
func (t Trader) Valid() bool {
	return t.ID != "" && t.Name != ""
}
