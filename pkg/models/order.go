package models

import "sort"

// DisplayItems returns a copy of items ordered for display: unchecked
// items first, then checked ones, each group keeping insertion order.
// The stored order is never changed.
func DisplayItems(items []Item) []Item {
	out := cloneItems(items)
	sort.SliceStable(out, func(i, j int) bool {
		return !out[i].Checked && out[j].Checked
	})
	return out
}

// CloneCategories returns a deep copy of categories. A nil slice stays nil.
func CloneCategories(categories []Category) []Category {
	if categories == nil {
		return nil
	}
	out := make([]Category, len(categories))
	for i, c := range categories {
		out[i] = Category{ID: c.ID, Name: c.Name, Items: cloneItems(c.Items)}
	}
	return out
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it
		if it.Capacity != nil {
			c := *it.Capacity
			out[i].Capacity = &c
		}
	}
	return out
}

// EqualCategories compares two category sequences structurally. Order
// matters: the same categories in a different order are not equal. A nil
// slice equals an empty one.
func EqualCategories(a, b []Category) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Name != b[i].Name {
			return false
		}
		if !equalItems(a[i].Items, b[i].Items) {
			return false
		}
	}
	return true
}

func equalItems(a, b []Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || x.Text != y.Text || x.Checked != y.Checked {
			return false
		}
		if (x.Capacity == nil) != (y.Capacity == nil) {
			return false
		}
		if x.Capacity != nil && *x.Capacity != *y.Capacity {
			return false
		}
	}
	return true
}

// IntPtr is a convenience for building items with a capacity.
func IntPtr(v int) *int {
	return &v
}
