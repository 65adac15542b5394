// Package cqrs puts two [github.com/fullyloaded/fullyloaded/pkg/store.Store]
// backends behind one, so data can be moved from one database to another
// while the service keeps running.
//
// # Migration Phases
//
// A move from backend A (primary) to backend B (secondary) goes through the
// modes in order:
//
//  1. [ModeSingle]: reads and writes use A. Writes are mirrored to B on a
//     best-effort basis; a failed mirror write is logged, not returned.
//  2. Backfill: `fullyloaded sync` copies records modified in a time window
//     from A to B with [SyncMissed].
//  3. [ModeReadOnly]: writes are rejected with store.ErrReadOnly while the
//     last window is synced.
//  4. [ModeSwitching]: reads come from B. Writes go to A and then to B,
//     and a failed write to B is returned, so a write is always visible
//     to the next read. This validates B under real read traffic.
//  5. [ModeReversed]: B takes reads and writes. A is kept current with a
//     reverse sync so the move can be rolled back.
//
// Finally the operator restarts with B as the only backend, or calls
// [CQRSStore.SwapStores], which makes B the primary and returns to
// [ModeSingle] with writes mirrored to A.
//
// # Limitations
//
// Catch-up sync is timestamp based. Deletions leave no trace to detect, so
// a list deleted on one side during a window stays on the other until it
// is deleted again.
package cqrs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fullyloaded/fullyloaded/pkg/models"
	"github.com/fullyloaded/fullyloaded/pkg/store"
)

type MigrationMode string

const (
	// ModeSingle operates with the primary store, mirroring writes to the
	// secondary when one is configured.
	ModeSingle MigrationMode = "single"

	// ModeReadOnly rejects all writes while reads continue from the primary.
	ModeReadOnly MigrationMode = "read_only"

	// ModeSwitching reads from the secondary. Writes go to the primary and
	// are then required to reach the secondary too.
	ModeSwitching MigrationMode = "switching"

	// ModeReversed uses the secondary for reads and writes.
	ModeReversed MigrationMode = "reversed"
)

// ParseMode validates a mode name.
func ParseMode(s string) (MigrationMode, error) {
	switch m := MigrationMode(s); m {
	case ModeSingle, ModeReadOnly, ModeSwitching, ModeReversed:
		return m, nil
	default:
		return "", fmt.Errorf("unknown migration mode %q", s)
	}
}

type CQRSStore struct {
	mu        sync.RWMutex
	primary   store.Store
	secondary store.Store
	mode      MigrationMode
	logger    zerolog.Logger
}

var _ store.Store = (*CQRSStore)(nil)

// NewCQRSStore combines two stores. secondary may be nil, in which case
// only ModeSingle and ModeReadOnly are available.
func NewCQRSStore(primary, secondary store.Store, mode MigrationMode, logger zerolog.Logger) *CQRSStore {
	return &CQRSStore{
		primary:   primary,
		secondary: secondary,
		mode:      mode,
		logger:    logger,
	}
}

// SetMode changes the mode. Leaving read_only is only allowed towards
// switching or single, and the modes that use the secondary require one.
func (c *CQRSStore) SetMode(mode MigrationMode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeReadOnly && mode != ModeSwitching && mode != ModeSingle && mode != ModeReadOnly {
		return fmt.Errorf("can only transition from read_only to switching or single mode")
	}
	if c.secondary == nil && (mode == ModeSwitching || mode == ModeReversed) {
		return fmt.Errorf("mode %s requires a secondary store", mode)
	}

	c.logger.Info().Str("from", string(c.mode)).Str("to", string(mode)).Msg("migration mode changed")
	c.mode = mode
	return nil
}

func (c *CQRSStore) GetMode() MigrationMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// SwapStores exchanges primary and secondary and returns to ModeSingle.
// It is only allowed in ModeReversed, where the secondary already takes
// every write.
func (c *CQRSStore) SwapStores() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeReversed {
		return fmt.Errorf("stores can only be swapped in reversed mode, not %s", c.mode)
	}
	c.primary, c.secondary = c.secondary, c.primary
	c.mode = ModeSingle
	c.logger.Info().Msg("swapped primary and secondary stores")
	return nil
}

func (c *CQRSStore) readStore() store.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch c.mode {
	case ModeSwitching, ModeReversed:
		return c.secondary
	default:
		return c.primary
	}
}

// writeStores returns the store whose result counts and the store that
// receives a copy. required reports whether a failed copy fails the write.
func (c *CQRSStore) writeStores() (target, mirror store.Store, required bool, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch c.mode {
	case ModeReadOnly:
		return nil, nil, false, fmt.Errorf("system is in read-only mode during migration: %w", store.ErrReadOnly)
	case ModeReversed:
		return c.secondary, nil, false, nil
	case ModeSwitching:
		// Reads come from the secondary, so it must see every write.
		return c.primary, c.secondary, true, nil
	default:
		return c.primary, c.secondary, false, nil
	}
}

func (c *CQRSStore) write(ctx context.Context, op string, fn func(store.Store) error) error {
	target, mirror, required, err := c.writeStores()
	if err != nil {
		return err
	}
	if err := fn(target); err != nil {
		return err
	}
	if mirror == nil {
		return nil
	}
	if err := fn(mirror); err != nil {
		if required {
			return fmt.Errorf("failed to %s on secondary store: %w", op, err)
		}
		c.logger.Warn().Err(err).Str("op", op).Msg("failed to mirror write to secondary store")
	}
	return nil
}

func (c *CQRSStore) Migrate(ctx context.Context) error {
	if err := c.primary.Migrate(ctx); err != nil {
		return fmt.Errorf("primary migration failed: %w", err)
	}
	if c.secondary != nil {
		if err := c.secondary.Migrate(ctx); err != nil {
			return fmt.Errorf("secondary migration failed: %w", err)
		}
	}
	return nil
}

func (c *CQRSStore) Close() error {
	primaryErr := c.primary.Close()
	var secondaryErr error
	if c.secondary != nil {
		secondaryErr = c.secondary.Close()
	}
	if primaryErr != nil {
		return primaryErr
	}
	return secondaryErr
}

func (c *CQRSStore) GetList(ctx context.Context, ownerID, key string) (*models.ListDocument, error) {
	return c.readStore().GetList(ctx, ownerID, key)
}

func (c *CQRSStore) PutList(ctx context.Context, ownerID string, doc *models.ListDocument) error {
	return c.write(ctx, "put list", func(s store.Store) error {
		return s.PutList(ctx, ownerID, doc)
	})
}

func (c *CQRSStore) ListLists(ctx context.Context, ownerID string) ([]*models.ListDocument, error) {
	return c.readStore().ListLists(ctx, ownerID)
}

func (c *CQRSStore) DeleteList(ctx context.Context, ownerID, key string) error {
	return c.write(ctx, "delete list", func(s store.Store) error {
		return s.DeleteList(ctx, ownerID, key)
	})
}

func (c *CQRSStore) PatchLists(ctx context.Context, ownerID string, patches []models.ListPatch) error {
	return c.write(ctx, "patch lists", func(s store.Store) error {
		return s.PatchLists(ctx, ownerID, patches)
	})
}

// CreateShare assigns the id before the first write so both stores hold
// the snapshot under the same id.
func (c *CQRSStore) CreateShare(ctx context.Context, snap *models.SharedSnapshot) error {
	if snap.ID.IsZero() {
		snap.ID = models.NewShareID()
	}
	return c.write(ctx, "create share", func(s store.Store) error {
		return s.CreateShare(ctx, snap)
	})
}

func (c *CQRSStore) GetShare(ctx context.Context, id models.ShareID) (*models.SharedSnapshot, error) {
	return c.readStore().GetShare(ctx, id)
}

func (c *CQRSStore) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	return c.readStore().GetProfile(ctx, uid)
}

func (c *CQRSStore) PutProfile(ctx context.Context, profile *models.Profile) error {
	return c.write(ctx, "put profile", func(s store.Store) error {
		return s.PutProfile(ctx, profile)
	})
}

func (c *CQRSStore) ListModifiedLists(ctx context.Context, since, until time.Time) ([]models.ListRef, error) {
	return c.readStore().ListModifiedLists(ctx, since, until)
}

func (c *CQRSStore) ListModifiedShareIDs(ctx context.Context, since, until time.Time) ([]models.ShareID, error) {
	return c.readStore().ListModifiedShareIDs(ctx, since, until)
}

func (c *CQRSStore) ListModifiedProfileIDs(ctx context.Context, since, until time.Time) ([]string, error) {
	return c.readStore().ListModifiedProfileIDs(ctx, since, until)
}
