package store

// Connection is a stored backend connection profile.
type Connection struct {
	Name      string
	BaseURL   string
	APIToken  string
	EngineURL string
	IsDefault bool
	CreatedAt string
	UpdatedAt string
}

// StateEntry is a simple key-value pair of cached UI state.
type StateEntry struct {
	Key       string
	Value     string
	UpdatedAt string
}
