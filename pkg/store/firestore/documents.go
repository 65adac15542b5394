package firestore

import (
	"time"

	"cloud.google.com/go/firestore"

	"github.com/fullyloaded/fullyloaded/pkg/models"
)

type itemDoc struct {
	ID       string `firestore:"id"`
	Text     string `firestore:"text"`
	Checked  bool   `firestore:"checked"`
	Capacity *int64 `firestore:"capacity,omitempty"`
}

type categoryDoc struct {
	ID    string    `firestore:"id"`
	Name  string    `firestore:"name"`
	Items []itemDoc `firestore:"items"`
}

type listDoc struct {
	Name       string        `firestore:"name,omitempty"`
	Title      string        `firestore:"title,omitempty"`
	UserID     string        `firestore:"userId,omitempty"`
	Categories []categoryDoc `firestore:"categories"`
	CreatedAt  *time.Time    `firestore:"createdAt,omitempty"`
	UpdatedAt  *time.Time    `firestore:"updatedAt,omitempty"`
}

type shareDoc struct {
	OriginalUserID   string        `firestore:"originalUserId"`
	OriginalUserName string        `firestore:"originalUserName"`
	ListName         string        `firestore:"listName"`
	Categories       []categoryDoc `firestore:"categories"`
	CreatedAt        time.Time     `firestore:"createdAt"`
	IsReadOnly       bool          `firestore:"isReadOnly"`
}

type profileDoc struct {
	Name        string    `firestore:"name,omitempty"`
	Email       string    `firestore:"email,omitempty"`
	PhotoURL    string    `firestore:"photoURL,omitempty"`
	HasMigrated bool      `firestore:"hasMigrated"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func newCategoryDocs(cats []models.Category) []categoryDoc {
	out := make([]categoryDoc, len(cats))
	for i, c := range cats {
		items := make([]itemDoc, len(c.Items))
		for j, it := range c.Items {
			items[j] = itemDoc{ID: it.ID, Text: it.Text, Checked: it.Checked}
			if it.Capacity != nil {
				v := int64(*it.Capacity)
				items[j].Capacity = &v
			}
		}
		out[i] = categoryDoc{ID: c.ID, Name: c.Name, Items: items}
	}
	return out
}

func toCategories(docs []categoryDoc) []models.Category {
	if docs == nil {
		return nil
	}
	out := make([]models.Category, len(docs))
	for i, c := range docs {
		items := make([]models.Item, len(c.Items))
		for j, it := range c.Items {
			items[j] = models.Item{ID: it.ID, Text: it.Text, Checked: it.Checked}
			if it.Capacity != nil {
				items[j].Capacity = models.IntPtr(int(*it.Capacity))
			}
		}
		out[i] = models.Category{ID: c.ID, Name: c.Name, Items: items}
	}
	return out
}

func newListDoc(d *models.ListDocument) listDoc {
	return listDoc{
		Name:       d.Name,
		Title:      d.Title,
		UserID:     d.UserID,
		Categories: newCategoryDocs(d.Categories),
		CreatedAt:  utcPtr(d.CreatedAt),
		UpdatedAt:  utcPtr(d.UpdatedAt),
	}
}

// decodeList checks the categories tree of a list document structurally
// before decoding it, since any client version may have written it.
func decodeList(snap *firestore.DocumentSnapshot) (*models.ListDocument, error) {
	return decodeListData(snap.Ref.ID, snap.Data(), snap.DataTo)
}

func decodeListData(key string, data map[string]any, dataTo func(any) error) (*models.ListDocument, error) {
	if err := models.CheckCategoryTree(data["categories"]); err != nil {
		return nil, err
	}
	var doc listDoc
	if err := dataTo(&doc); err != nil {
		return nil, err
	}
	return doc.toModel(key), nil
}

func (d listDoc) toModel(key string) *models.ListDocument {
	return &models.ListDocument{
		Key:        key,
		Name:       d.Name,
		Title:      d.Title,
		UserID:     d.UserID,
		Categories: toCategories(d.Categories),
		CreatedAt:  utcPtr(d.CreatedAt),
		UpdatedAt:  utcPtr(d.UpdatedAt),
	}
}

func newShareDoc(s *models.SharedSnapshot) shareDoc {
	return shareDoc{
		OriginalUserID:   s.OwnerID,
		OriginalUserName: s.OwnerDisplayName,
		ListName:         s.ListName,
		Categories:       newCategoryDocs(s.Categories),
		CreatedAt:        s.CreatedAt.UTC(),
		IsReadOnly:       s.IsReadOnly,
	}
}

func (d shareDoc) toModel(id models.ShareID) *models.SharedSnapshot {
	return &models.SharedSnapshot{
		ID:               id,
		OwnerID:          d.OriginalUserID,
		OwnerDisplayName: d.OriginalUserName,
		ListName:         d.ListName,
		Categories:       toCategories(d.Categories),
		CreatedAt:        d.CreatedAt.UTC(),
		IsReadOnly:       d.IsReadOnly,
	}
}

func newProfileDoc(p *models.Profile) profileDoc {
	return profileDoc{
		Name:        p.DisplayName,
		Email:       p.Email,
		PhotoURL:    p.PhotoURL,
		HasMigrated: p.HasMigrated,
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
}

func (d profileDoc) toModel(uid string) *models.Profile {
	return &models.Profile{
		UID:         uid,
		DisplayName: d.Name,
		Email:       d.Email,
		PhotoURL:    d.PhotoURL,
		HasMigrated: d.HasMigrated,
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
