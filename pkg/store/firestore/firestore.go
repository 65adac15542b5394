// Package firestore implements [github.com/fullyloaded/fullyloaded/pkg/store.Store]
// on Cloud Firestore, using the document layout the web client has always
// used:
//
//	users/{uid}                 profile fields and the hasMigrated flag
//	users/{uid}/lists/{name}    one document per list, keyed by name
//	shared_lists/{shareId}      immutable share snapshots
//
// Timestamps are stored as native Firestore timestamps. Legacy documents
// written by older clients may lack any of name, title, userId or the
// timestamps; they decode with those fields empty. A list whose categories
// do not have the expected structure is malformed: GetList reports it as a
// store.MalformedListError and ListLists logs and skips it.
//
// The migration patch batch is a single Firestore WriteBatch and is
// therefore atomic. A batch holds at most 500 writes.
//
// ListModifiedLists runs a collection group query over "lists", which
// needs a collection group index on updatedAt.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fullyloaded/fullyloaded/pkg/models"
	"github.com/fullyloaded/fullyloaded/pkg/store"
)

const (
	usersCollection  = "users"
	listsCollection  = "lists"
	sharesCollection = "shared_lists"

	maxBatchWrites = 500
)

// ErrBatchTooLarge is returned when a patch batch cannot be committed
// atomically.
var ErrBatchTooLarge = errors.New("patch batch exceeds the firestore write limit")

// Store is the Firestore backend.
type Store struct {
	client *firestore.Client
	logger zerolog.Logger
}

var _ store.Store = (*Store)(nil)

// NewApp initializes a Firebase app. credentialsFile may be empty to use
// application default credentials (or the emulator, when
// FIRESTORE_EMULATOR_HOST is set).
func NewApp(ctx context.Context, projectID, credentialsFile string) (*firebase.App, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	return app, nil
}

// New opens a Firestore client from a Firebase app.
func New(ctx context.Context, app *firebase.App, logger zerolog.Logger) (*Store, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Firestore: %w", err)
	}
	return NewFromClient(client, logger), nil
}

// NewFromClient wraps an existing client. The store takes ownership and
// closes it on Close.
func NewFromClient(client *firestore.Client, logger zerolog.Logger) *Store {
	return &Store{client: client, logger: logger}
}

// Migrate is a no-op: Firestore collections need no creation, and indexes
// are deployed with the project configuration.
func (s *Store) Migrate(context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) listsRef(ownerID string) *firestore.CollectionRef {
	return s.client.Collection(usersCollection).Doc(ownerID).Collection(listsCollection)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (s *Store) GetList(ctx context.Context, ownerID, key string) (*models.ListDocument, error) {
	snap, err := s.listsRef(ownerID).Doc(key).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	doc, err := decodeList(snap)
	if err != nil {
		return nil, &store.MalformedListError{OwnerID: ownerID, Key: key, Err: err}
	}
	return doc, nil
}

func (s *Store) PutList(ctx context.Context, ownerID string, doc *models.ListDocument) error {
	if _, err := s.listsRef(ownerID).Doc(doc.Key).Set(ctx, newListDoc(doc)); err != nil {
		return fmt.Errorf("failed to put list: %w", err)
	}
	return nil
}

func (s *Store) ListLists(ctx context.Context, ownerID string) ([]*models.ListDocument, error) {
	snaps, err := s.listsRef(ownerID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list lists: %w", err)
	}
	out := make([]*models.ListDocument, 0, len(snaps))
	for _, snap := range snaps {
		doc, err := decodeList(snap)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("path", snap.Ref.Path).
				Msg("skipping malformed list document")
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *Store) DeleteList(ctx context.Context, ownerID, key string) error {
	if _, err := s.listsRef(ownerID).Doc(key).Delete(ctx); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	return nil
}

// PatchLists commits all patches in one WriteBatch. Update fails on a
// missing document, which fails the whole batch.
func (s *Store) PatchLists(ctx context.Context, ownerID string, patches []models.ListPatch) error {
	if len(patches) == 0 {
		return nil
	}
	if len(patches) > maxBatchWrites {
		return fmt.Errorf("failed to patch %d lists: %w", len(patches), ErrBatchTooLarge)
	}

	batch := s.client.Batch()
	for _, p := range patches {
		batch.Update(s.listsRef(ownerID).Doc(p.Key), []firestore.Update{
			{Path: "name", Value: p.Name},
			{Path: "title", Value: p.Title},
			{Path: "userId", Value: p.UserID},
			{Path: "createdAt", Value: p.CreatedAt},
			{Path: "updatedAt", Value: p.UpdatedAt},
		})
	}
	if _, err := batch.Commit(ctx); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("failed to patch lists: %w", &store.MissingListError{OwnerID: ownerID})
		}
		return fmt.Errorf("failed to patch lists: %w", err)
	}
	return nil
}

func (s *Store) CreateShare(ctx context.Context, snap *models.SharedSnapshot) error {
	if snap.ID.IsZero() {
		snap.ID = models.NewShareID()
	}
	ref := s.client.Collection(sharesCollection).Doc(snap.ID.String())
	if _, err := ref.Create(ctx, newShareDoc(snap)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return &store.DuplicateShareError{ID: snap.ID}
		}
		return fmt.Errorf("failed to create share: %w", err)
	}
	return nil
}

func (s *Store) GetShare(ctx context.Context, id models.ShareID) (*models.SharedSnapshot, error) {
	snap, err := s.client.Collection(sharesCollection).Doc(id.String()).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get share: %w", err)
	}
	var doc shareDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode share %s: %w", snap.Ref.Path, err)
	}
	return doc.toModel(id), nil
}

func (s *Store) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	snap, err := s.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	var doc profileDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", snap.Ref.Path, err)
	}
	return doc.toModel(uid), nil
}

// PutProfile overwrites the fields of users/{uid}. The lists subcollection
// is a separate set of documents and is not affected.
func (s *Store) PutProfile(ctx context.Context, profile *models.Profile) error {
	if _, err := s.client.Collection(usersCollection).Doc(profile.UID).Set(ctx, newProfileDoc(profile)); err != nil {
		return fmt.Errorf("failed to put profile: %w", err)
	}
	return nil
}

func (s *Store) ListModifiedLists(ctx context.Context, since, until time.Time) ([]models.ListRef, error) {
	snaps, err := s.client.CollectionGroup(listsCollection).
		Where("updatedAt", ">=", since).
		Where("updatedAt", "<", until).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list modified lists: %w", err)
	}
	refs := make([]models.ListRef, 0, len(snaps))
	for _, snap := range snaps {
		owner := snap.Ref.Parent.Parent
		if owner == nil {
			continue
		}
		refs = append(refs, models.ListRef{OwnerID: owner.ID, Key: snap.Ref.ID})
	}
	return refs, nil
}

func (s *Store) ListModifiedShareIDs(ctx context.Context, since, until time.Time) ([]models.ShareID, error) {
	snaps, err := s.client.Collection(sharesCollection).
		Where("createdAt", ">=", since).
		Where("createdAt", "<", until).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list modified shares: %w", err)
	}
	ids := make([]models.ShareID, 0, len(snaps))
	for _, snap := range snaps {
		id, err := models.ParseShareID(snap.Ref.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", snap.Ref.Path).Msg("skipping share with unusable id")
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) ListModifiedProfileIDs(ctx context.Context, since, until time.Time) ([]string, error) {
	snaps, err := s.client.Collection(usersCollection).
		Where("updatedAt", ">=", since).
		Where("updatedAt", "<", until).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list modified profiles: %w", err)
	}
	ids := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		ids = append(ids, snap.Ref.ID)
	}
	return ids, nil
}
