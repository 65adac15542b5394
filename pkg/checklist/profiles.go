package checklist

import (
	"context"

	"github.com/fullyloaded/fullyloaded/pkg/models"
	"github.com/fullyloaded/fullyloaded/pkg/store"
)

// Profiles maintains the denormalized copy of each user kept for share
// attribution and the migration flag.
type Profiles struct {
	store store.ProfileStore
	opts  options
}

func NewProfiles(s store.ProfileStore, opts ...Option) *Profiles {
	return &Profiles{store: s, opts: buildOptions(opts)}
}

// Get returns the profile or ErrNotFound.
func (p *Profiles) Get(ctx context.Context, uid string) (*models.Profile, error) {
	const op = "get profile"

	profile, err := p.store.GetProfile(ctx, uid)
	if err != nil {
		return nil, StoreError(op, err)
	}
	if profile == nil {
		return nil, NotFoundError(op, "profile does not exist")
	}
	return profile, nil
}

// Upsert merges the identity fields of in into the stored profile,
// creating it when missing. Empty fields in in leave stored values alone
// and the hasMigrated flag is never changed here.
func (p *Profiles) Upsert(ctx context.Context, in *models.Profile) (*models.Profile, error) {
	const op = "upsert profile"

	if in.UID == "" {
		return nil, ValidationError(op, &models.FieldError{Field: "uid", Reason: "is required"})
	}
	current, err := p.store.GetProfile(ctx, in.UID)
	if err != nil {
		return nil, StoreError(op, err)
	}
	if current == nil {
		current = &models.Profile{UID: in.UID}
	}
	current.Merge(in)
	current.UpdatedAt = p.opts.timestamp()
	if err := p.store.PutProfile(ctx, current); err != nil {
		return nil, StoreError(op, err)
	}
	return current, nil
}

// SetPhotoURL records a new profile image location.
func (p *Profiles) SetPhotoURL(ctx context.Context, uid, url string) (*models.Profile, error) {
	if url == "" {
		return nil, ValidationError("set photo", &models.FieldError{Field: "photoURL", Reason: "is required"})
	}
	return p.Upsert(ctx, &models.Profile{UID: uid, PhotoURL: url})
}
