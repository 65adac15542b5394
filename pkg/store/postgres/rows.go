package postgres

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fullyloaded/fullyloaded/pkg/models"
)

// Categories stores the ordered category tree as JSONB.
type Categories []models.Category

func (c Categories) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]models.Category(c))
}

func (c *Categories) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*c = Categories{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan type %T into Categories", value)
	}
	var out []models.Category
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*c = out
	return nil
}

func (Categories) GormDataType() string { return "jsonb" }

// Timestamp fields are not named CreatedAt/UpdatedAt so GORM does not
// stamp them; legacy lists legitimately have none.
type listRow struct {
	OwnerID    string     `gorm:"primaryKey;column:owner_id"`
	Key        string     `gorm:"primaryKey;column:list_key"`
	Name       string     `gorm:"column:name"`
	Title      string     `gorm:"column:title"`
	UserID     string     `gorm:"column:user_id"`
	Categories Categories `gorm:"column:categories;not null"`
	Created    *time.Time `gorm:"column:created_at"`
	Updated    *time.Time `gorm:"column:updated_at;index"`
}

func (listRow) TableName() string { return "lists" }

type shareRow struct {
	ID               models.ShareID `gorm:"primaryKey;column:id"`
	OriginalUserID   string         `gorm:"column:original_user_id;index"`
	OriginalUserName string         `gorm:"column:original_user_name"`
	ListName         string         `gorm:"column:list_name"`
	Categories       Categories     `gorm:"column:categories;not null"`
	Created          time.Time      `gorm:"column:created_at;index"`
	IsReadOnly       bool           `gorm:"column:is_read_only"`
}

func (shareRow) TableName() string { return "shared_lists" }

type profileRow struct {
	UID         string    `gorm:"primaryKey;column:uid"`
	Name        string    `gorm:"column:name"`
	Email       string    `gorm:"column:email"`
	PhotoURL    string    `gorm:"column:photo_url"`
	HasMigrated bool      `gorm:"column:has_migrated"`
	Updated     time.Time `gorm:"column:updated_at;index"`
}

func (profileRow) TableName() string { return "profiles" }

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func newListRow(ownerID string, d *models.ListDocument) listRow {
	return listRow{
		OwnerID:    ownerID,
		Key:        d.Key,
		Name:       d.Name,
		Title:      d.Title,
		UserID:     d.UserID,
		Categories: Categories(d.Categories),
		Created:    utc(d.CreatedAt),
		Updated:    utc(d.UpdatedAt),
	}
}

func (r *listRow) toModel() *models.ListDocument {
	return &models.ListDocument{
		Key:        r.Key,
		Name:       r.Name,
		Title:      r.Title,
		UserID:     r.UserID,
		Categories: []models.Category(r.Categories),
		CreatedAt:  utc(r.Created),
		UpdatedAt:  utc(r.Updated),
	}
}

func newShareRow(s *models.SharedSnapshot) shareRow {
	return shareRow{
		ID:               s.ID,
		OriginalUserID:   s.OwnerID,
		OriginalUserName: s.OwnerDisplayName,
		ListName:         s.ListName,
		Categories:       Categories(s.Categories),
		Created:          s.CreatedAt.UTC(),
		IsReadOnly:       s.IsReadOnly,
	}
}

func (r *shareRow) toModel() *models.SharedSnapshot {
	return &models.SharedSnapshot{
		ID:               r.ID,
		OwnerID:          r.OriginalUserID,
		OwnerDisplayName: r.OriginalUserName,
		ListName:         r.ListName,
		Categories:       []models.Category(r.Categories),
		CreatedAt:        r.Created.UTC(),
		IsReadOnly:       r.IsReadOnly,
	}
}

func newProfileRow(p *models.Profile) profileRow {
	return profileRow{
		UID:         p.UID,
		Name:        p.DisplayName,
		Email:       p.Email,
		PhotoURL:    p.PhotoURL,
		HasMigrated: p.HasMigrated,
		Updated:     p.UpdatedAt.UTC(),
	}
}

func (r *profileRow) toModel() *models.Profile {
	return &models.Profile{
		UID:         r.UID,
		DisplayName: r.Name,
		Email:       r.Email,
		PhotoURL:    r.PhotoURL,
		HasMigrated: r.HasMigrated,
		UpdatedAt:   r.Updated.UTC(),
	}
}
