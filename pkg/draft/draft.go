// Package draft holds the client-side editing state of one list: a
// working copy that every mutation applies to, and a snapshot of what was
// last persisted. The list is dirty whenever the two differ structurally.
//
// A Draft is not safe for concurrent use. It belongs to a single editing
// session.
package draft

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/fullyloaded/fullyloaded/pkg/checklist"
	"github.com/fullyloaded/fullyloaded/pkg/models"
)

// Saver persists a list. *checklist.Lists satisfies it through a small
// adapter; see ForOwner.
type Saver interface {
	Save(ctx context.Context, name string, categories []models.Category) error
}

type state struct {
	name       string
	categories []models.Category
}

func (s state) clone() state {
	return state{name: s.name, categories: models.CloneCategories(s.categories)}
}

func (s state) equal(o state) bool {
	return s.name == o.name && models.EqualCategories(s.categories, o.categories)
}

type Draft struct {
	working  state
	snapshot state
	newID    func() string
}

// New returns an empty draft named models.DefaultListName. It is clean
// until the first mutation.
func New() *Draft {
	return Load(models.DefaultListName, []models.Category{})
}

// Load starts a draft from a persisted list.
func Load(name string, categories []models.Category) *Draft {
	if categories == nil {
		categories = []models.Category{}
	}
	s := state{name: name, categories: models.CloneCategories(categories)}
	return &Draft{
		working:  s,
		snapshot: s.clone(),
		newID:    uuid.NewString,
	}
}

// Name is the working name.
func (d *Draft) Name() string { return d.working.name }

// Working returns a copy of the working categories.
func (d *Draft) Working() []models.Category {
	return models.CloneCategories(d.working.categories)
}

// Snapshot returns a copy of the last persisted name and categories.
func (d *Draft) Snapshot() (string, []models.Category) {
	return d.snapshot.name, models.CloneCategories(d.snapshot.categories)
}

// IsDirty reports whether the working copy differs from the snapshot.
// Reordering categories or items counts as a change.
func (d *Draft) IsDirty() bool {
	return !d.working.equal(d.snapshot)
}

// Reset discards every unsaved change.
func (d *Draft) Reset() {
	d.working = d.snapshot.clone()
}

// Save persists the working copy. Only on success does the snapshot
// become a copy of what was saved; on failure the draft stays dirty.
func (d *Draft) Save(ctx context.Context, saver Saver) error {
	saving := d.working.clone()
	if err := saver.Save(ctx, saving.name, saving.categories); err != nil {
		return err
	}
	if name, err := models.NormalizeName(saving.name); err == nil {
		saving.name = name
	}
	d.working.name = saving.name
	d.snapshot = saving
	return nil
}

// SetName changes the working list name.
func (d *Draft) SetName(name string) error {
	if _, err := models.NormalizeName(name); err != nil {
		return checklist.ValidationError("rename draft", err)
	}
	d.working.name = strings.TrimSpace(name)
	return nil
}

// AddCategory appends an empty category and returns its id.
func (d *Draft) AddCategory(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", checklist.ValidationError("add category", &models.FieldError{Field: "category.name", Reason: "is required"})
	}
	id := d.newID()
	d.working.categories = append(d.working.categories, models.Category{ID: id, Name: name, Items: []models.Item{}})
	return id, nil
}

// RenameCategory changes a category's name.
func (d *Draft) RenameCategory(categoryID, name string) error {
	const op = "rename category"
	name = strings.TrimSpace(name)
	if name == "" {
		return checklist.ValidationError(op, &models.FieldError{Field: "category.name", Reason: "is required"})
	}
	c, err := d.category(op, categoryID)
	if err != nil {
		return err
	}
	c.Name = name
	return nil
}

// DeleteCategory removes a category together with its items.
func (d *Draft) DeleteCategory(categoryID string) error {
	idx := d.categoryIndex(categoryID)
	if idx < 0 {
		return checklist.NotFoundError("delete category", "category "+categoryID+" does not exist")
	}
	cats := d.working.categories
	d.working.categories = append(cats[:idx:idx], cats[idx+1:]...)
	return nil
}

// AddItem appends an unchecked item to a category and returns its id.
func (d *Draft) AddItem(categoryID, text string, capacity *int) (string, error) {
	const op = "add item"
	item := models.Item{ID: d.newID(), Text: strings.TrimSpace(text), Capacity: copyInt(capacity)}
	if err := item.Validate(); err != nil {
		return "", checklist.ValidationError(op, err)
	}
	c, err := d.category(op, categoryID)
	if err != nil {
		return "", err
	}
	c.Items = append(c.Items, item)
	return item.ID, nil
}

// EditItem replaces an item's text and capacity. A nil capacity stops
// tracking it.
func (d *Draft) EditItem(categoryID, itemID, text string, capacity *int) error {
	const op = "edit item"
	it, err := d.item(op, categoryID, itemID)
	if err != nil {
		return err
	}
	edited := *it
	edited.Text = strings.TrimSpace(text)
	edited.Capacity = copyInt(capacity)
	if err := edited.Validate(); err != nil {
		return checklist.ValidationError(op, err)
	}
	*it = edited
	return nil
}

// ToggleItem flips an item's checked state.
func (d *Draft) ToggleItem(categoryID, itemID string) error {
	it, err := d.item("toggle item", categoryID, itemID)
	if err != nil {
		return err
	}
	it.Checked = !it.Checked
	return nil
}

// DeleteItem removes an item from its category.
func (d *Draft) DeleteItem(categoryID, itemID string) error {
	const op = "delete item"
	c, err := d.category(op, categoryID)
	if err != nil {
		return err
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i:i], c.Items[i+1:]...)
			return nil
		}
	}
	return checklist.NotFoundError(op, "item "+itemID+" does not exist")
}

// DisplayItems returns a category's working items in display order,
// unchecked first. The stored order is unchanged.
func (d *Draft) DisplayItems(categoryID string) ([]models.Item, error) {
	c, err := d.category("display items", categoryID)
	if err != nil {
		return nil, err
	}
	return models.DisplayItems(c.Items), nil
}

func (d *Draft) categoryIndex(id string) int {
	for i := range d.working.categories {
		if d.working.categories[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Draft) category(op, id string) (*models.Category, error) {
	idx := d.categoryIndex(id)
	if idx < 0 {
		return nil, checklist.NotFoundError(op, "category "+id+" does not exist")
	}
	return &d.working.categories[idx], nil
}

func (d *Draft) item(op, categoryID, itemID string) (*models.Item, error) {
	c, err := d.category(op, categoryID)
	if err != nil {
		return nil, err
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i], nil
		}
	}
	return nil, checklist.NotFoundError(op, "item "+itemID+" does not exist")
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// ownerSaver binds a Lists service to one owner.
type ownerSaver struct {
	lists   *checklist.Lists
	ownerID string
}

func (o ownerSaver) Save(ctx context.Context, name string, categories []models.Category) error {
	return o.lists.Save(ctx, o.ownerID, name, categories)
}

// ForOwner adapts lists into a Saver that writes as ownerID.
func ForOwner(lists *checklist.Lists, ownerID string) Saver {
	return ownerSaver{lists: lists, ownerID: ownerID}
}
