package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fullyloaded/fullyloaded/pkg/models"
)

type saveListRequest struct {
	Name       string            `json:"name,omitempty"`
	Categories []models.Category `json:"categories"`
	Overwrite  bool              `json:"overwrite,omitempty"`
}

func listPath(name string) string {
	return "/api/lists/" + url.PathEscape(name)
}

// ListLists returns the caller's saved lists ordered by name. Entries
// that do not have the structure of a saved list are dropped.
func (c *Client) ListLists(ctx context.Context) ([]models.SavedChecklist, error) {
	var raw []json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/api/lists", nil, &raw); err != nil {
		return nil, err
	}
	result := make([]models.SavedChecklist, 0, len(raw))
	for _, entry := range raw {
		var generic any
		if err := json.Unmarshal(entry, &generic); err != nil || !models.IsSavedChecklist(generic) {
			continue
		}
		var list models.SavedChecklist
		if err := json.Unmarshal(entry, &list); err != nil {
			continue
		}
		result = append(result, list)
	}
	return result, nil
}

// CreateList saves a new list. Without overwrite an existing list of the
// same name fails with status 409.
func (c *Client) CreateList(ctx context.Context, name string, categories []models.Category, overwrite bool) (*models.SavedChecklist, error) {
	var result models.SavedChecklist
	req := saveListRequest{Name: name, Categories: categories, Overwrite: overwrite}
	if err := c.call(ctx, http.MethodPost, "/api/lists", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetList(ctx context.Context, name string) (*models.SavedChecklist, error) {
	var result models.SavedChecklist
	if err := c.call(ctx, http.MethodGet, listPath(name), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SaveList writes the list, replacing any list of the same name.
func (c *Client) SaveList(ctx context.Context, name string, categories []models.Category) (*models.SavedChecklist, error) {
	var result models.SavedChecklist
	if err := c.call(ctx, http.MethodPut, listPath(name), saveListRequest{Categories: categories}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteList(ctx context.Context, name string) error {
	return c.call(ctx, http.MethodDelete, listPath(name), nil, nil)
}

func (c *Client) ListExists(ctx context.Context, name string) (bool, error) {
	var result struct {
		Exists bool `json:"exists"`
	}
	if err := c.call(ctx, http.MethodGet, listPath(name)+"/exists", nil, &result); err != nil {
		return false, err
	}
	return result.Exists, nil
}

func (c *Client) RenameList(ctx context.Context, oldName, newName string, overwrite bool) (*models.SavedChecklist, error) {
	req := struct {
		NewName   string `json:"newName"`
		Overwrite bool   `json:"overwrite"`
	}{newName, overwrite}

	var result models.SavedChecklist
	if err := c.call(ctx, http.MethodPost, listPath(oldName)+"/rename", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ShareResult holds the id and public URL of a new share.
type ShareResult struct {
	ShareID  string `json:"shareId"`
	ShareURL string `json:"shareUrl"`
}

// CreateShare snapshots a list for public reading. It needs no auth token.
func (c *Client) CreateShare(ctx context.Context, userID, listName string, categories []models.Category) (*ShareResult, error) {
	req := struct {
		UserID     string            `json:"userId"`
		ListName   string            `json:"listName"`
		Categories []models.Category `json:"categories"`
	}{userID, listName, categories}

	var result ShareResult
	if err := c.call(ctx, http.MethodPost, "/api/lists/share", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetShare reads a shared snapshot. The server answers 500 for unknown
// ids as well as for backend failures.
func (c *Client) GetShare(ctx context.Context, shareID string) (*models.SharedSnapshot, error) {
	var result models.SharedSnapshot
	if err := c.call(ctx, http.MethodGet, "/api/lists/share?id="+url.QueryEscape(shareID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ImportShare copies a share into the caller's lists.
func (c *Client) ImportShare(ctx context.Context, shareID string) (*models.SavedChecklist, error) {
	var result models.SavedChecklist
	path := fmt.Sprintf("/api/lists/share/%s/import", url.PathEscape(shareID))
	if err := c.call(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
