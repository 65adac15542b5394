package checklist

import (
	"context"
	"errors"
	"sort"

	"github.com/fullyloaded/fullyloaded/pkg/models"
	"github.com/fullyloaded/fullyloaded/pkg/store"
)

// Lists is the persistence adapter for a user's lists.
type Lists struct {
	store store.ListStore
	opts  options
}

func NewLists(s store.ListStore, opts ...Option) *Lists {
	return &Lists{store: s, opts: buildOptions(opts)}
}

// Save writes (name, categories) as the owner's list, replacing any list
// of the same name. createdAt survives the overwrite; updatedAt is always
// refreshed.
func (l *Lists) Save(ctx context.Context, ownerID, name string, categories []models.Category) error {
	const op = "save list"

	if ownerID == "" {
		return ValidationError(op, &models.FieldError{Field: "userId", Reason: "is required"})
	}
	name, err := models.NormalizeName(name)
	if err != nil {
		return ValidationError(op, err)
	}
	if err := models.ValidateCategories(categories); err != nil {
		return ValidationError(op, err)
	}

	// Saving over a malformed document replaces it.
	existing, err := l.store.GetList(ctx, ownerID, name)
	if err != nil && !isMalformed(err) {
		return StoreError(op, err)
	}

	now := l.opts.timestamp()
	created := now
	if existing != nil && existing.CreatedAt != nil && !existing.CreatedAt.IsZero() {
		created = *existing.CreatedAt
	}

	stored := models.CloneCategories(categories)
	if stored == nil {
		stored = []models.Category{}
	}
	doc := &models.ListDocument{
		Key:        name,
		Name:       name,
		Title:      name,
		UserID:     ownerID,
		Categories: stored,
		CreatedAt:  &created,
		UpdatedAt:  &now,
	}
	if err := l.store.PutList(ctx, ownerID, doc); err != nil {
		return StoreError(op, err)
	}

	l.opts.logger.Debug().
		Str("owner", ownerID).
		Str("list", name).
		Int("categories", len(stored)).
		Msg("list saved")
	return nil
}

// SaveNew saves a list unless another list with the same name exists and
// overwrite is false, in which case it fails with ErrConflict. The
// existence check completes before the write is issued.
func (l *Lists) SaveNew(ctx context.Context, ownerID, name string, categories []models.Category, overwrite bool) error {
	const op = "create list"

	if !overwrite {
		exists, err := l.Exists(ctx, ownerID, name)
		if err != nil {
			return err
		}
		if exists {
			return ConflictError(op, "a list named \""+trimmed(name)+"\" already exists")
		}
	}
	return l.Save(ctx, ownerID, name, categories)
}

// List returns all of the owner's lists ordered by name. Documents that
// fail structural validation are skipped and logged.
func (l *Lists) List(ctx context.Context, ownerID string) ([]models.SavedChecklist, error) {
	const op = "list lists"

	if ownerID == "" {
		return nil, ValidationError(op, &models.FieldError{Field: "userId", Reason: "is required"})
	}
	docs, err := l.store.ListLists(ctx, ownerID)
	if err != nil {
		return nil, StoreError(op, err)
	}

	now := l.opts.timestamp()
	out := make([]models.SavedChecklist, 0, len(docs))
	for _, doc := range docs {
		if err := models.ValidateCategories(doc.Categories); err != nil {
			l.opts.logger.Warn().
				Err(err).
				Str("owner", ownerID).
				Str("list", doc.Key).
				Msg("skipping malformed list document")
			continue
		}
		out = append(out, models.NewSavedChecklist(doc, now))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns one list or ErrNotFound.
func (l *Lists) Get(ctx context.Context, ownerID, name string) (*models.SavedChecklist, error) {
	const op = "get list"

	name, err := models.NormalizeName(name)
	if err != nil {
		return nil, ValidationError(op, err)
	}
	doc, err := l.store.GetList(ctx, ownerID, name)
	if err != nil {
		if isMalformed(err) {
			return nil, ValidationError(op, err)
		}
		return nil, StoreError(op, err)
	}
	if doc == nil {
		return nil, NotFoundError(op, "list \""+name+"\" does not exist")
	}
	if err := models.ValidateCategories(doc.Categories); err != nil {
		return nil, ValidationError(op, err)
	}
	saved := models.NewSavedChecklist(doc, l.opts.timestamp())
	return &saved, nil
}

// Exists reports whether the owner has a list with this name.
func (l *Lists) Exists(ctx context.Context, ownerID, name string) (bool, error) {
	const op = "check list"

	name, err := models.NormalizeName(name)
	if err != nil {
		return false, ValidationError(op, err)
	}
	doc, err := l.store.GetList(ctx, ownerID, name)
	if err != nil {
		if isMalformed(err) {
			return true, nil
		}
		return false, StoreError(op, err)
	}
	return doc != nil, nil
}

// Delete removes the list. Deleting a list that does not exist succeeds.
func (l *Lists) Delete(ctx context.Context, ownerID, name string) error {
	const op = "delete list"

	if ownerID == "" {
		return ValidationError(op, &models.FieldError{Field: "userId", Reason: "is required"})
	}
	name, err := models.NormalizeName(name)
	if err != nil {
		return ValidationError(op, err)
	}
	if err := l.store.DeleteList(ctx, ownerID, name); err != nil {
		return StoreError(op, err)
	}
	return nil
}

// Rename moves a list to a new name by saving under newName and then
// deleting oldName. A failure between the two steps leaves both copies in
// place. Renaming onto another existing list needs overwrite.
func (l *Lists) Rename(ctx context.Context, ownerID, oldName, newName string, overwrite bool) error {
	const op = "rename list"

	oldName, err := models.NormalizeName(oldName)
	if err != nil {
		return ValidationError(op, err)
	}
	newName, err = models.NormalizeName(newName)
	if err != nil {
		return ValidationError(op, err)
	}

	source, err := l.store.GetList(ctx, ownerID, oldName)
	if err != nil {
		if isMalformed(err) {
			return ValidationError(op, err)
		}
		return StoreError(op, err)
	}
	if source == nil {
		return NotFoundError(op, "list \""+oldName+"\" does not exist")
	}

	if oldName != newName && !overwrite {
		exists, err := l.Exists(ctx, ownerID, newName)
		if err != nil {
			return err
		}
		if exists {
			return ConflictError(op, "a list named \""+newName+"\" already exists")
		}
	}

	if err := l.Save(ctx, ownerID, newName, source.Categories); err != nil {
		return err
	}
	if oldName == newName {
		return nil
	}
	return l.Delete(ctx, ownerID, oldName)
}

func isMalformed(err error) bool {
	var malformed *store.MalformedListError
	return errors.As(err, &malformed)
}

func trimmed(name string) string {
	n, err := models.NormalizeName(name)
	if err != nil {
		return name
	}
	return n
}
