package fullyloaded

import (
	"context"
	"fmt"
	"time"

	"github.com/fullyloaded/fullyloaded/pkg/store"
	"github.com/fullyloaded/fullyloaded/pkg/store/cqrs"
)

// Sync copies records modified in [since, until) between the primary and
// secondary stores. Deletions are not carried over.
func (a *App) Sync(ctx context.Context, direction string, since, until time.Time) (err error) {
	if a.config.Secondary == "" {
		return fmt.Errorf("sync requires a secondary backend (FULLYLOADED_SECONDARY)")
	}
	if a.IsReadOnly() {
		return fmt.Errorf("sync cannot run in read-only mode as it needs write access to databases")
	}
	if !since.Before(until) {
		return fmt.Errorf("sync window is empty: since %s is not before until %s", since.Format(time.RFC3339), until.Format(time.RFC3339))
	}

	cqrsStore, ok := store.Unwrap(a.store).(*cqrs.CQRSStore)
	if !ok {
		return fmt.Errorf("sync requires CQRS store but app has %T", store.Unwrap(a.store))
	}

	log := a.logger.With().
		Str("direction", direction).
		Time("since", since).
		Time("until", until).
		Logger()

	var stats cqrs.SyncStats
	switch direction {
	case "forward":
		log.Info().Msgf("performing forward sync (%s -> %s)", a.config.Backend, a.config.Secondary)
		stats, err = cqrsStore.SyncMissedUpdates(ctx, since, until)
	case "reverse":
		log.Info().Msgf("performing reverse sync (%s -> %s)", a.config.Secondary, a.config.Backend)
		stats, err = cqrsStore.ReverseSyncMissedUpdates(ctx, since, until)
	default:
		return fmt.Errorf("invalid sync direction: %s (must be 'forward' or 'reverse')", direction)
	}
	if err != nil {
		return fmt.Errorf("%s sync failed: %w", direction, err)
	}

	log.Info().
		Int("lists", stats.Lists).
		Int("shares", stats.Shares).
		Int("profiles", stats.Profiles).
		Int("failed", stats.Failed).
		Int("skipped", stats.Skipped).
		Msg("sync completed")
	if stats.Failed > 0 {
		return fmt.Errorf("%d records could not be written", stats.Failed)
	}
	return nil
}

// ParseTime parses an RFC3339 time, returning defaultTime for an empty
// string.
func ParseTime(timeStr string, defaultTime time.Time) (time.Time, error) {
	if timeStr == "" {
		return defaultTime, nil
	}
	return time.Parse(time.RFC3339, timeStr)
}
