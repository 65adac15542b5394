package surrealdb

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/fullyloaded/fullyloaded/pkg/models"
)

// Record shapes as stored in SurrealDB. Categories are plain nested
// objects and reuse the model type directly. Timestamps go through
// CustomDateTime so they are sent and read as native datetimes.

type listRow struct {
	Owner      string                        `json:"owner"`
	Key        string                        `json:"key"`
	Name       string                        `json:"name,omitempty"`
	Title      string                        `json:"title,omitempty"`
	UserID     string                        `json:"userId,omitempty"`
	Categories []models.Category             `json:"categories"`
	CreatedAt  *surrealmodels.CustomDateTime `json:"createdAt,omitempty"`
	UpdatedAt  *surrealmodels.CustomDateTime `json:"updatedAt,omitempty"`
}

type patchRow struct {
	Name      string                        `json:"name"`
	Title     string                        `json:"title"`
	UserID    string                        `json:"userId"`
	CreatedAt *surrealmodels.CustomDateTime `json:"createdAt"`
	UpdatedAt *surrealmodels.CustomDateTime `json:"updatedAt"`
}

type shareContent struct {
	OriginalUserID   string                        `json:"originalUserId"`
	OriginalUserName string                        `json:"originalUserName"`
	ListName         string                        `json:"listName"`
	Categories       []models.Category             `json:"categories"`
	CreatedAt        *surrealmodels.CustomDateTime `json:"createdAt"`
	IsReadOnly       bool                          `json:"isReadOnly"`
}

type shareRow struct {
	ID models.ShareID `json:"id"`
	shareContent
}

type profileRow struct {
	UID         string                        `json:"uid"`
	Name        string                        `json:"name,omitempty"`
	Email       string                        `json:"email,omitempty"`
	PhotoURL    string                        `json:"photoURL,omitempty"`
	HasMigrated bool                          `json:"hasMigrated"`
	UpdatedAt   *surrealmodels.CustomDateTime `json:"updatedAt,omitempty"`
}

func datetime(t time.Time) *surrealmodels.CustomDateTime {
	return &surrealmodels.CustomDateTime{Time: t.UTC()}
}

func optionalDatetime(t *time.Time) *surrealmodels.CustomDateTime {
	if t == nil || t.IsZero() {
		return nil
	}
	return datetime(*t)
}

func fromDatetime(d *surrealmodels.CustomDateTime) *time.Time {
	if d == nil || d.Time.IsZero() {
		return nil
	}
	t := d.Time.UTC()
	return &t
}

func nonNil(cats []models.Category) []models.Category {
	if cats == nil {
		return []models.Category{}
	}
	return cats
}

func newListRow(ownerID string, d *models.ListDocument) listRow {
	return listRow{
		Owner:      ownerID,
		Key:        d.Key,
		Name:       d.Name,
		Title:      d.Title,
		UserID:     d.UserID,
		Categories: nonNil(d.Categories),
		CreatedAt:  optionalDatetime(d.CreatedAt),
		UpdatedAt:  optionalDatetime(d.UpdatedAt),
	}
}

func (r *listRow) toModel() *models.ListDocument {
	return &models.ListDocument{
		Key:        r.Key,
		Name:       r.Name,
		Title:      r.Title,
		UserID:     r.UserID,
		Categories: r.Categories,
		CreatedAt:  fromDatetime(r.CreatedAt),
		UpdatedAt:  fromDatetime(r.UpdatedAt),
	}
}

func newPatchRow(p models.ListPatch) patchRow {
	return patchRow{
		Name:      p.Name,
		Title:     p.Title,
		UserID:    p.UserID,
		CreatedAt: datetime(p.CreatedAt),
		UpdatedAt: datetime(p.UpdatedAt),
	}
}

func newShareContent(s *models.SharedSnapshot) shareContent {
	return shareContent{
		OriginalUserID:   s.OwnerID,
		OriginalUserName: s.OwnerDisplayName,
		ListName:         s.ListName,
		Categories:       nonNil(s.Categories),
		CreatedAt:        datetime(s.CreatedAt),
		IsReadOnly:       s.IsReadOnly,
	}
}

func (r *shareRow) toModel() *models.SharedSnapshot {
	snap := &models.SharedSnapshot{
		ID:               r.ID,
		OwnerID:          r.OriginalUserID,
		OwnerDisplayName: r.OriginalUserName,
		ListName:         r.ListName,
		Categories:       r.Categories,
		IsReadOnly:       r.IsReadOnly,
	}
	if t := fromDatetime(r.CreatedAt); t != nil {
		snap.CreatedAt = *t
	}
	return snap
}

func newProfileRow(p *models.Profile) profileRow {
	return profileRow{
		UID:         p.UID,
		Name:        p.DisplayName,
		Email:       p.Email,
		PhotoURL:    p.PhotoURL,
		HasMigrated: p.HasMigrated,
		UpdatedAt:   optionalDatetime(&p.UpdatedAt),
	}
}

func (r *profileRow) toModel() *models.Profile {
	p := &models.Profile{
		UID:         r.UID,
		DisplayName: r.Name,
		Email:       r.Email,
		PhotoURL:    r.PhotoURL,
		HasMigrated: r.HasMigrated,
	}
	if t := fromDatetime(r.UpdatedAt); t != nil {
		p.UpdatedAt = *t
	}
	return p
}
