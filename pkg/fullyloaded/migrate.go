package fullyloaded

import (
	"context"
	"fmt"
)

// Migrate creates the schema of every configured backend. It does not
// touch list documents; legacy documents are rewritten per user through
// the migration endpoint.
func (a *App) Migrate(ctx context.Context, cmd *MigrateCommand) error {
	a.logger.Info().Str("backend", a.config.Backend).Str("secondary", a.config.Secondary).Msg("running database migrations")
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	a.logger.Info().Msg("migrations completed")
	return nil
}
