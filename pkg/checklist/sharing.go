package checklist

import (
	"context"
	"strings"

	"github.com/fullyloaded/fullyloaded/pkg/models"
	"github.com/fullyloaded/fullyloaded/pkg/store"
)

// DefaultBaseURL is used for share links when no base URL is configured.
const DefaultBaseURL = "http://localhost:3000"

// ShareResult is what a caller gets back after sharing a list.
type ShareResult struct {
	ShareID  string `json:"shareId"`
	ShareURL string `json:"shareUrl"`
}

// Sharing creates and resolves share snapshots. Snapshots copy the
// categories by value, so later edits to the source list never reach an
// existing share. Shares do not expire and need no authentication to
// read.
type Sharing struct {
	shares   store.ShareStore
	profiles store.ProfileStore
	lists    *Lists
	baseURL  string
	opts     options
}

func NewSharing(shares store.ShareStore, profiles store.ProfileStore, lists *Lists, baseURL string, opts ...Option) *Sharing {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Sharing{
		shares:   shares,
		profiles: profiles,
		lists:    lists,
		baseURL:  baseURL,
		opts:     buildOptions(opts),
	}
}

// ShareURL builds the public link for a share id.
func (s *Sharing) ShareURL(id models.ShareID) string {
	return s.baseURL + "/shared/" + id.String()
}

// CreateShare stores a snapshot of (listName, categories) attributed to
// the owner's display name, or UnknownOwnerName when the owner has none.
func (s *Sharing) CreateShare(ctx context.Context, ownerID, listName string, categories []models.Category) (*ShareResult, error) {
	const op = "create share"

	if ownerID == "" {
		return nil, ValidationError(op, &models.FieldError{Field: "userId", Reason: "is required"})
	}
	if strings.TrimSpace(listName) == "" {
		return nil, ValidationError(op, &models.FieldError{Field: "listName", Reason: "is required"})
	}
	if categories == nil {
		return nil, ValidationError(op, &models.FieldError{Field: "categories", Reason: "is required"})
	}
	if err := models.ValidateCategories(categories); err != nil {
		return nil, ValidationError(op, err)
	}

	ownerName, err := s.ownerDisplayName(ctx, ownerID)
	if err != nil {
		return nil, StoreError(op, err)
	}

	snap := &models.SharedSnapshot{
		ID:               models.NewShareID(),
		OwnerID:          ownerID,
		OwnerDisplayName: ownerName,
		ListName:         strings.TrimSpace(listName),
		Categories:       models.CloneCategories(categories),
		CreatedAt:        s.opts.timestamp(),
		IsReadOnly:       true,
	}
	if err := s.shares.CreateShare(ctx, snap); err != nil {
		return nil, StoreError(op, err)
	}

	s.opts.logger.Info().
		Str("owner", ownerID).
		Str("list", snap.ListName).
		Str("share", snap.ID.String()).
		Msg("list shared")

	return &ShareResult{
		ShareID:  snap.ID.String(),
		ShareURL: s.ShareURL(snap.ID),
	}, nil
}

func (s *Sharing) ownerDisplayName(ctx context.Context, ownerID string) (string, error) {
	profile, err := s.profiles.GetProfile(ctx, ownerID)
	if err != nil {
		return "", err
	}
	if profile == nil || strings.TrimSpace(profile.DisplayName) == "" {
		return models.UnknownOwnerName, nil
	}
	return profile.DisplayName, nil
}

// Resolve returns the snapshot for shareID or ErrNotFound. Ids are opaque:
// minted ULIDs and the auto-ids of older shares resolve alike. An id that
// cannot name a document is reported as not found too.
func (s *Sharing) Resolve(ctx context.Context, shareID string) (*models.SharedSnapshot, error) {
	const op = "resolve share"

	id, err := models.ParseShareID(shareID)
	if err != nil {
		return nil, NotFoundError(op, "shared list not found")
	}
	snap, err := s.shares.GetShare(ctx, id)
	if err != nil {
		return nil, StoreError(op, err)
	}
	if snap == nil {
		return nil, NotFoundError(op, "shared list not found")
	}
	snap.IsReadOnly = true
	return snap, nil
}

// Import resolves a share and saves it to the viewer's lists under
// "{listName} (from {owner})". The derived name is not checked against
// the viewer's existing lists; an existing list with that name is
// overwritten. It returns the name used.
func (s *Sharing) Import(ctx context.Context, viewerID, shareID string) (string, error) {
	snap, err := s.Resolve(ctx, shareID)
	if err != nil {
		return "", err
	}
	return s.ImportSnapshot(ctx, viewerID, snap)
}

// ImportSnapshot saves an already resolved snapshot for the viewer.
func (s *Sharing) ImportSnapshot(ctx context.Context, viewerID string, snap *models.SharedSnapshot) (string, error) {
	name := snap.ImportName()
	if err := s.lists.Save(ctx, viewerID, name, snap.Categories); err != nil {
		return "", err
	}
	s.opts.logger.Info().
		Str("viewer", viewerID).
		Str("share", snap.ID.String()).
		Str("list", name).
		Msg("shared list imported")
	return name, nil
}
