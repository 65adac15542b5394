package fullyloaded

// Command is a parsed subcommand.
type Command interface {
	Name() string
}

// MigrateCommand creates the backend schema.
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string {
	return "migrate"
}

// RunCommand starts the HTTP server.
type RunCommand struct{}

func (c *RunCommand) Name() string {
	return "run"
}

// SyncCommand copies records between the primary and secondary stores.
type SyncCommand struct {
	// Direction is "forward" (primary to secondary) or "reverse".
	Direction string

	// Since and Until bound the window, RFC3339. Empty means the last 24
	// hours.
	Since string
	Until string
}

func (c *SyncCommand) Name() string {
	return "sync"
}
