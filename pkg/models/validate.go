package models

import (
	"fmt"
	"math"
)

// FieldError describes a single structural problem with a document.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ValidCapacity reports whether c is absent or within [MinCapacity, MaxCapacity].
func ValidCapacity(c *int) bool {
	return c == nil || (*c >= MinCapacity && *c <= MaxCapacity)
}

// Validate checks the required fields of an item.
func (i *Item) Validate() error {
	if i.ID == "" {
		return &FieldError{Field: "item.id", Reason: "is required"}
	}
	if i.Text == "" {
		return &FieldError{Field: "item.text", Reason: "is required"}
	}
	if !ValidCapacity(i.Capacity) {
		return &FieldError{Field: "item.capacity", Reason: fmt.Sprintf("must be between %d and %d", MinCapacity, MaxCapacity)}
	}
	return nil
}

// Validate checks the category and every item in it. Item ids must be
// unique within the category.
func (c *Category) Validate() error {
	if c.ID == "" {
		return &FieldError{Field: "category.id", Reason: "is required"}
	}
	if c.Name == "" {
		return &FieldError{Field: "category.name", Reason: "is required"}
	}
	seen := make(map[string]struct{}, len(c.Items))
	for idx := range c.Items {
		if err := c.Items[idx].Validate(); err != nil {
			return err
		}
		if _, dup := seen[c.Items[idx].ID]; dup {
			return &FieldError{Field: "item.id", Reason: fmt.Sprintf("%q is duplicated in category %q", c.Items[idx].ID, c.Name)}
		}
		seen[c.Items[idx].ID] = struct{}{}
	}
	return nil
}

// ValidateCategories checks every category. Category ids must be unique
// within the list.
func ValidateCategories(categories []Category) error {
	seen := make(map[string]struct{}, len(categories))
	for idx := range categories {
		if err := categories[idx].Validate(); err != nil {
			return err
		}
		if _, dup := seen[categories[idx].ID]; dup {
			return &FieldError{Field: "category.id", Reason: fmt.Sprintf("%q is duplicated", categories[idx].ID)}
		}
		seen[categories[idx].ID] = struct{}{}
	}
	return nil
}

// The predicates below check decoded, schema-less data (as produced by
// json.Unmarshal into any, or a Firestore document's Data) before it is
// trusted as a model value.

// IsItem reports whether v has the structure of an Item.
func IsItem(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	if !isString(m["id"]) || !isString(m["text"]) {
		return false
	}
	if _, ok := m["checked"].(bool); !ok {
		return false
	}
	if c, present := m["capacity"]; present && c != nil {
		return isInteger(c)
	}
	return true
}

// IsCategory reports whether v has the structure of a Category.
func IsCategory(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	if !isString(m["id"]) || !isString(m["name"]) {
		return false
	}
	items, ok := m["items"].([]any)
	if !ok {
		return false
	}
	for _, it := range items {
		if !IsItem(it) {
			return false
		}
	}
	return true
}

// IsSavedChecklist reports whether v has the structure of a SavedChecklist.
func IsSavedChecklist(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	if !isString(m["id"]) || !isString(m["name"]) || !isString(m["updatedAt"]) {
		return false
	}
	categories, ok := m["categories"].([]any)
	if !ok {
		return false
	}
	for _, c := range categories {
		if !IsCategory(c) {
			return false
		}
	}
	return true
}

// CheckCategoryTree checks a decoded "categories" value. A missing value
// is accepted and decodes as an empty list.
func CheckCategoryTree(v any) error {
	if v == nil {
		return nil
	}
	categories, ok := v.([]any)
	if !ok {
		return &FieldError{Field: "categories", Reason: "must be an array"}
	}
	for i, c := range categories {
		if !IsCategory(c) {
			return &FieldError{Field: "categories", Reason: fmt.Sprintf("entry %d is not a category", i)}
		}
	}
	return nil
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

// isInteger accepts whole numbers of any numeric type. JSON decoding
// yields float64 and Firestore yields int64.
func isInteger(v any) bool {
	switch n := v.(type) {
	case float64:
		return !math.IsInf(n, 0) && n == math.Trunc(n)
	case float32:
		f := float64(n)
		return !math.IsInf(f, 0) && f == math.Trunc(f)
	case int, int32, int64:
		return true
	}
	return false
}
