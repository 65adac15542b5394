package checklist

import (
	"context"
	"time"

	"github.com/fullyloaded/fullyloaded/pkg/models"
	"github.com/fullyloaded/fullyloaded/pkg/store"
)

// Migrator rewrites an owner's legacy list documents into the current
// layout (title, name and userId populated and consistent).
//
// The rewrite is a field patch, never a full document write, and all
// patches of one run are committed as a single atomic batch. The per-user
// hasMigrated flag lives on the profile and is set only after a
// successful commit, so a failed run is retried on the next session.
type Migrator struct {
	lists    store.ListStore
	profiles store.ProfileStore
	opts     options
}

func NewMigrator(lists store.ListStore, profiles store.ProfileStore, opts ...Option) *Migrator {
	return &Migrator{lists: lists, profiles: profiles, opts: buildOptions(opts)}
}

// PlanPatches returns the patches needed to bring docs to the current
// layout for ownerID. Current documents produce no patch.
func PlanPatches(docs []*models.ListDocument, ownerID string, now time.Time) []models.ListPatch {
	var patches []models.ListPatch
	for _, doc := range docs {
		if doc.IsCurrent(ownerID) {
			continue
		}
		name := doc.DisplayName()
		created := now
		if doc.CreatedAt != nil && !doc.CreatedAt.IsZero() {
			created = *doc.CreatedAt
		}
		patches = append(patches, models.ListPatch{
			Key:       doc.Key,
			Name:      name,
			Title:     name,
			UserID:    ownerID,
			CreatedAt: created,
			UpdatedAt: now,
		})
	}
	return patches
}

// Run migrates the owner's lists and reports how many documents were
// patched. Only the owner may migrate their own lists. Running it again
// on migrated data patches nothing and returns 0.
func (m *Migrator) Run(ctx context.Context, callerID, ownerID string) (int, error) {
	const op = "migrate lists"

	if callerID == "" || callerID != ownerID {
		return 0, AuthorizationError(op, "lists can only be migrated by their owner")
	}

	docs, err := m.lists.ListLists(ctx, ownerID)
	if err != nil {
		return 0, StoreError(op, err)
	}

	patches := PlanPatches(docs, ownerID, m.opts.timestamp())
	if len(patches) == 0 {
		m.opts.logger.Debug().Str("owner", ownerID).Msg("no legacy lists to migrate")
		return 0, nil
	}

	if err := m.lists.PatchLists(ctx, ownerID, patches); err != nil {
		return 0, StoreError(op, err)
	}

	m.opts.logger.Info().
		Str("owner", ownerID).
		Int("migrated", len(patches)).
		Int("scanned", len(docs)).
		Msg("legacy lists migrated")
	return len(patches), nil
}

// Status reports whether the owner's one-time migration has completed.
func (m *Migrator) Status(ctx context.Context, ownerID string) (bool, error) {
	profile, err := m.profiles.GetProfile(ctx, ownerID)
	if err != nil {
		return false, StoreError("migration status", err)
	}
	return profile != nil && profile.HasMigrated, nil
}

// EnsureMigrated runs the migration once per user. When the hasMigrated
// flag is already set it does nothing and ran is false.
func (m *Migrator) EnsureMigrated(ctx context.Context, callerID, ownerID string) (count int, ran bool, err error) {
	const op = "ensure migrated"

	if callerID == "" || callerID != ownerID {
		return 0, false, AuthorizationError(op, "lists can only be migrated by their owner")
	}

	done, err := m.Status(ctx, ownerID)
	if err != nil {
		return 0, false, err
	}
	if done {
		return 0, false, nil
	}

	count, err = m.Run(ctx, callerID, ownerID)
	if err != nil {
		return 0, true, err
	}

	if err := m.markMigrated(ctx, ownerID); err != nil {
		return count, true, StoreError(op, err)
	}
	return count, true, nil
}

func (m *Migrator) markMigrated(ctx context.Context, ownerID string) error {
	profile, err := m.profiles.GetProfile(ctx, ownerID)
	if err != nil {
		return err
	}
	if profile == nil {
		profile = &models.Profile{UID: ownerID}
	}
	profile.HasMigrated = true
	profile.UpdatedAt = m.opts.timestamp()
	return m.profiles.PutProfile(ctx, profile)
}
