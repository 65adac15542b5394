package models

import (
	"strings"
	"time"
)

// DefaultListName is the name a fresh list starts with.
const DefaultListName = "Camping Checklist"

// UnknownOwnerName is used for share attribution when the owner has no
// stored display name.
const UnknownOwnerName = "Unknown User"

// Capacity bounds, inclusive.
const (
	MinCapacity = 0
	MaxCapacity = 100
)

// ISOLayout formats timestamps the way the web front end expects them
// (millisecond precision, UTC, trailing Z).
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// Item is a single checkable entry within a category.
// Capacity is a display-only percentage; nil means "not tracked".
type Item struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Checked  bool   `json:"checked"`
	Capacity *int   `json:"capacity,omitempty"`
}

// Category is a named, ordered group of items.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// ListDocument is a list as it is stored under users/{uid}/lists/{key}.
//
// Key is the document key and always equals the list name for documents
// written by this service. Name, Title and UserID are separate stored
// fields because legacy documents may carry only some of them; see
// IsCurrent. Timestamps are pointers since degraded documents may lack
// them.
type ListDocument struct {
	Key        string     `json:"id"`
	Name       string     `json:"name,omitempty"`
	Title      string     `json:"title,omitempty"`
	UserID     string     `json:"userId,omitempty"`
	Categories []Category `json:"categories"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// DisplayName returns the best available human name for the document.
func (d *ListDocument) DisplayName() string {
	switch {
	case d.Name != "":
		return d.Name
	case d.Title != "":
		return d.Title
	default:
		return d.Key
	}
}

// IsCurrent reports whether the document already has the current field
// layout for the given owner: title and name populated and equal, and
// userId set to the owner.
func (d *ListDocument) IsCurrent(ownerID string) bool {
	return d.Title != "" && d.Title == d.Name && d.UserID == ownerID
}

// Clone returns a deep copy of the document.
func (d *ListDocument) Clone() *ListDocument {
	if d == nil {
		return nil
	}
	out := *d
	out.Categories = CloneCategories(d.Categories)
	out.CreatedAt = cloneTime(d.CreatedAt)
	out.UpdatedAt = cloneTime(d.UpdatedAt)
	return &out
}

// SavedChecklist is the read-boundary view of a list, with timestamps
// rendered as ISO-8601 strings.
type SavedChecklist struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Categories []Category `json:"categories"`
	CreatedAt  string     `json:"createdAt"`
	UpdatedAt  string     `json:"updatedAt"`
}

// NewSavedChecklist converts a stored document. Missing timestamps fall
// back to now; that is degraded data, not an error.
func NewSavedChecklist(d *ListDocument, now time.Time) SavedChecklist {
	categories := CloneCategories(d.Categories)
	if categories == nil {
		categories = []Category{}
	}
	for i := range categories {
		if categories[i].Items == nil {
			categories[i].Items = []Item{}
		}
	}
	return SavedChecklist{
		ID:         d.Key,
		Name:       d.DisplayName(),
		Categories: categories,
		CreatedAt:  FormatTime(d.CreatedAt, now),
		UpdatedAt:  FormatTime(d.UpdatedAt, now),
	}
}

// FormatTime renders t in ISOLayout, or fallback when t is nil or zero.
func FormatTime(t *time.Time, fallback time.Time) string {
	if t == nil || t.IsZero() {
		return fallback.UTC().Format(ISOLayout)
	}
	return t.UTC().Format(ISOLayout)
}

// SharedSnapshot is an immutable, publicly readable copy of a list taken
// at share time. The json names match what the share endpoint has always
// returned.
type SharedSnapshot struct {
	ID               ShareID    `json:"id"`
	OwnerID          string     `json:"originalUserId"`
	OwnerDisplayName string     `json:"originalUserName"`
	ListName         string     `json:"listName"`
	Categories       []Category `json:"categories"`
	CreatedAt        time.Time  `json:"createdAt"`
	IsReadOnly       bool       `json:"isReadOnly"`
}

// ImportName is the name a viewer's copy of the snapshot is saved under.
func (s *SharedSnapshot) ImportName() string {
	return s.ListName + " (from " + s.OwnerDisplayName + ")"
}

// Profile is the denormalized copy of a user kept at users/{uid}.
type Profile struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"name,omitempty"`
	Email       string    `json:"email,omitempty"`
	PhotoURL    string    `json:"photoURL,omitempty"`
	HasMigrated bool      `json:"hasMigrated"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Merge copies the non-empty identity fields of other onto p, leaving
// HasMigrated untouched.
func (p *Profile) Merge(other *Profile) {
	if other.DisplayName != "" {
		p.DisplayName = other.DisplayName
	}
	if other.Email != "" {
		p.Email = other.Email
	}
	if other.PhotoURL != "" {
		p.PhotoURL = other.PhotoURL
	}
}

// ListPatch is an in-place field update of one list document, staged by
// the legacy document migration.
type ListPatch struct {
	Key       string
	Name      string
	Title     string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListRef identifies a list document across owners.
type ListRef struct {
	OwnerID string
	Key     string
}

// NormalizeName trims a list name and rejects names that cannot be a
// document key.
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if reason := invalidDocumentID(trimmed); reason != "" {
		return "", &FieldError{Field: "name", Reason: reason}
	}
	return trimmed, nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
