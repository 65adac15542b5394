// Package checklist implements the checklist services on top of a
// [github.com/fullyloaded/fullyloaded/pkg/store.Store]:
//
//   - [Lists] saves, lists, checks, deletes and renames a user's lists.
//   - [Sharing] publishes immutable share snapshots and imports them.
//   - [Migrator] rewrites legacy list documents into the current layout.
//   - [Profiles] keeps the denormalized user profile.
//
// Writes are last-writer-wins at document granularity. Two saves of the
// same (owner, name) race and the later response wins; there is no
// version check. The only multi-document write is the migration batch,
// which is atomic.
//
// Every error returned here is an [*Error] whose kind can be tested with
// errors.Is against ErrValidation, ErrNotFound, ErrAuthorization,
// ErrConflict or ErrStore. Nothing is retried.
package checklist
