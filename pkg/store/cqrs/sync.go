package cqrs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fullyloaded/fullyloaded/pkg/store"
)

// SyncStats counts what a catch-up sync copied. Failed counts records
// that were read from the source but could not be written. Skipped counts
// source lists that exist but cannot be decoded.
type SyncStats struct {
	Lists    int `json:"lists"`
	Shares   int `json:"shares"`
	Profiles int `json:"profiles"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// SyncMissedUpdates copies records modified in [since, until) from the
// primary to the secondary.
func (c *CQRSStore) SyncMissedUpdates(ctx context.Context, since, until time.Time) (SyncStats, error) {
	c.mu.RLock()
	from, to := c.primary, c.secondary
	c.mu.RUnlock()
	if to == nil {
		return SyncStats{}, fmt.Errorf("no secondary store configured")
	}
	return SyncMissed(ctx, from, to, since, until, c.logger)
}

// ReverseSyncMissedUpdates copies from the secondary back to the primary,
// which keeps the old backend usable for a rollback in reversed mode.
func (c *CQRSStore) ReverseSyncMissedUpdates(ctx context.Context, since, until time.Time) (SyncStats, error) {
	c.mu.RLock()
	from, to := c.secondary, c.primary
	c.mu.RUnlock()
	if from == nil {
		return SyncStats{}, fmt.Errorf("no secondary store configured")
	}
	return SyncMissed(ctx, from, to, since, until, c.logger)
}

// SyncMissed copies lists, shares and profiles modified in [since, until)
// from one store to another. Lists and profiles overwrite the target copy;
// shares are immutable and only copied when the target lacks them.
//
// Listing or reading the source aborts the sync, except for malformed
// lists, which are logged and skipped. A failed write to the target is
// logged and counted, and the sync moves on.
func SyncMissed(ctx context.Context, from, to store.Store, since, until time.Time, logger zerolog.Logger) (SyncStats, error) {
	var stats SyncStats

	refs, err := from.ListModifiedLists(ctx, since, until)
	if err != nil {
		return stats, fmt.Errorf("failed to list modified lists: %w", err)
	}
	for _, ref := range refs {
		doc, err := from.GetList(ctx, ref.OwnerID, ref.Key)
		var malformed *store.MalformedListError
		if errors.As(err, &malformed) {
			logger.Warn().Err(err).Str("owner", ref.OwnerID).Str("list", ref.Key).Msg("skipping malformed list")
			stats.Skipped++
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("failed to get list %s/%s: %w", ref.OwnerID, ref.Key, err)
		}
		if doc == nil {
			continue
		}
		if err := to.PutList(ctx, ref.OwnerID, doc); err != nil {
			logger.Warn().Err(err).Str("owner", ref.OwnerID).Str("list", ref.Key).Msg("failed to sync list")
			stats.Failed++
			continue
		}
		stats.Lists++
	}

	shareIDs, err := from.ListModifiedShareIDs(ctx, since, until)
	if err != nil {
		return stats, fmt.Errorf("failed to list modified shares: %w", err)
	}
	for _, id := range shareIDs {
		snap, err := from.GetShare(ctx, id)
		if err != nil {
			return stats, fmt.Errorf("failed to get share %s: %w", id, err)
		}
		if snap == nil {
			continue
		}
		if existing, _ := to.GetShare(ctx, id); existing != nil {
			continue
		}
		if err := to.CreateShare(ctx, snap); err != nil {
			logger.Warn().Err(err).Stringer("share", id).Msg("failed to sync share")
			stats.Failed++
			continue
		}
		stats.Shares++
	}

	uids, err := from.ListModifiedProfileIDs(ctx, since, until)
	if err != nil {
		return stats, fmt.Errorf("failed to list modified profiles: %w", err)
	}
	for _, uid := range uids {
		profile, err := from.GetProfile(ctx, uid)
		if err != nil {
			return stats, fmt.Errorf("failed to get profile %s: %w", uid, err)
		}
		if profile == nil {
			continue
		}
		if err := to.PutProfile(ctx, profile); err != nil {
			logger.Warn().Err(err).Str("uid", uid).Msg("failed to sync profile")
			stats.Failed++
			continue
		}
		stats.Profiles++
	}

	logger.Info().
		Time("since", since).
		Time("until", until).
		Int("lists", stats.Lists).
		Int("shares", stats.Shares).
		Int("profiles", stats.Profiles).
		Int("failed", stats.Failed).
		Int("skipped", stats.Skipped).
		Msg("catch-up sync finished")
	return stats, nil
}
