// Package models defines the checklist document model shared by every
// store backend and service: items, categories, saved lists, share
// snapshots and user profiles.
//
// Lists are keyed by the pair (owner, name). The name doubles as the
// document key, so a rename is a write of the new key followed by a
// delete of the old one. Share snapshots carry a deep copy of the
// categories and are never updated after creation.
//
// Types in this package carry json tags only. Each backend maps them to
// its own row or document shape.
package models
