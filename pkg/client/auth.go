package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/fullyloaded/fullyloaded/pkg/auth"
	"github.com/fullyloaded/fullyloaded/pkg/models"
)

// Session is the response of a successful sign-in.
type Session struct {
	Token       string         `json:"token"`
	User        auth.Principal `json:"user"`
	HasMigrated bool           `json:"hasMigrated"`
}

// SignIn exchanges an ID token for a session and uses the session token
// for later requests.
func (c *Client) SignIn(ctx context.Context, idToken string) (*Session, error) {
	req := map[string]string{"idToken": idToken}

	var result Session
	if err := c.call(ctx, http.MethodPost, "/api/auth/session", req, &result); err != nil {
		return nil, fmt.Errorf("signin request failed: %w", err)
	}

	c.SetAuthToken(result.Token)

	return &result, nil
}

// SignOut ends the session and clears the stored token.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.call(ctx, http.MethodPost, "/api/auth/signout", nil, nil); err != nil {
		return fmt.Errorf("signout request failed: %w", err)
	}
	c.SetAuthToken("")
	return nil
}

func (c *Client) GetCurrentUser(ctx context.Context) (*auth.Principal, error) {
	var result auth.Principal
	if err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetProfile(ctx context.Context) (*models.Profile, error) {
	var result models.Profile
	if err := c.call(ctx, http.MethodGet, "/api/profile", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UploadProfileImage replaces the caller's profile image and returns the
// updated profile.
func (c *Client) UploadProfileImage(ctx context.Context, filename, contentType string, image io.Reader) (*models.Profile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/api/profile/image", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}

	var result models.Profile
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) MigrationStatus(ctx context.Context) (bool, error) {
	var result struct {
		HasMigrated bool `json:"hasMigrated"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/migration", nil, &result); err != nil {
		return false, err
	}
	return result.HasMigrated, nil
}

// MigrationResult reports a migration run. Ran is false when the caller
// was already migrated and nothing was attempted.
type MigrationResult struct {
	MigratedCount int  `json:"migratedCount"`
	Ran           bool `json:"ran"`
}

// RunMigration migrates the caller's legacy lists once; force runs the
// rewrite even when the caller is flagged as migrated.
func (c *Client) RunMigration(ctx context.Context, force bool) (*MigrationResult, error) {
	path := "/api/migration"
	if force {
		path += "?force=true"
	}
	var result MigrationResult
	if err := c.call(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ModeStatus is the storage mode reported by the admin endpoints.
type ModeStatus struct {
	Mode     string `json:"mode"`
	ReadOnly bool   `json:"readOnly"`
}

func (c *Client) GetMode(ctx context.Context) (*ModeStatus, error) {
	var result ModeStatus
	if err := c.call(ctx, http.MethodGet, "/api/admin/mode", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) SetMode(ctx context.Context, mode string) (*ModeStatus, error) {
	var result ModeStatus
	if err := c.call(ctx, http.MethodPost, "/api/admin/mode", map[string]string{"mode": mode}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) SetReadOnly(ctx context.Context, readOnly bool) (*ModeStatus, error) {
	var result ModeStatus
	if err := c.call(ctx, http.MethodPost, "/api/admin/read-only", map[string]bool{"readOnly": readOnly}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SwapStores promotes the secondary store to primary. The server must be
// in reversed mode.
func (c *Client) SwapStores(ctx context.Context) (*ModeStatus, error) {
	var result ModeStatus
	if err := c.call(ctx, http.MethodPost, "/api/admin/swap-stores", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
