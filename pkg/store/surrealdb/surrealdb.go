// Package surrealdb implements [github.com/fullyloaded/fullyloaded/pkg/store.Store]
// on SurrealDB using parameterized SurrealQL.
//
// # Tables
//
//	list          record id list:[owner, key]; owner and key are also plain fields
//	shared_list   record id shared_list:<share id>, see models.ShareID
//	profile       record id profile:<uid>
//
// Records are written with UPSERT ... CONTENT, which replaces the whole
// record, so PutList and PutProfile have overwrite semantics. Timestamps
// are sent as SurrealDB datetimes.
//
// # Transactions
//
// PatchLists sends every patch in a single query wrapped in
// BEGIN/COMMIT TRANSACTION. Each patch is guarded by record::exists and
// THROW, so a missing list cancels the whole transaction.
//
// # Query safety
//
// Values are always bound as $parameters. The only text assembled at
// runtime is the parameter names of the patch transaction.
package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/fullyloaded/fullyloaded/pkg/models"
	"github.com/fullyloaded/fullyloaded/pkg/store"
)

const (
	listTable    = "list"
	profileTable = "profile"
)

// Config holds the connection settings.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
}

type Store struct {
	db *surrealdb.DB
}

var _ store.Store = (*Store)(nil)

// New connects, signs in when credentials are set, and selects the
// namespace and database.
func New(ctx context.Context, conf Config) (*Store, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, conf.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if conf.Username != "" && conf.Password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": conf.Username,
			"pass": conf.Password,
		}); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, conf.Namespace, conf.Database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	return &Store{db: db}, nil
}

const schema = `
DEFINE TABLE IF NOT EXISTS list SCHEMALESS;
DEFINE INDEX IF NOT EXISTS list_owner ON list FIELDS owner;
DEFINE INDEX IF NOT EXISTS list_updated ON list FIELDS updatedAt;
DEFINE TABLE IF NOT EXISTS shared_list SCHEMALESS;
DEFINE INDEX IF NOT EXISTS shared_list_created ON shared_list FIELDS createdAt;
DEFINE TABLE IF NOT EXISTS profile SCHEMALESS;
DEFINE INDEX IF NOT EXISTS profile_updated ON profile FIELDS updatedAt;
`

// Migrate defines the tables and the indexes the owner and time window
// queries use. Tables stay schemaless.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := query[any](ctx, s.db, schema, nil); err != nil {
		return fmt.Errorf("failed to define schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close(context.Background())
}

// query runs sql and returns the result of its first statement. Any
// statement that did not finish with status OK fails the call.
func query[T any](ctx context.Context, db *surrealdb.DB, sql string, vars map[string]any) ([]T, error) {
	res, err := surrealdb.Query[[]T](ctx, db, sql, vars)
	if err != nil {
		return nil, err
	}
	if res == nil || len(*res) == 0 {
		return nil, nil
	}
	for _, r := range *res {
		if r.Status != "OK" {
			return nil, fmt.Errorf("query failed with status %s", r.Status)
		}
	}
	return (*res)[0].Result, nil
}

func listRecordID(ownerID, key string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(listTable, []any{ownerID, key})
}

func profileRecordID(uid string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(profileTable, uid)
}

func (s *Store) GetList(ctx context.Context, ownerID, key string) (*models.ListDocument, error) {
	rows, err := query[listRow](ctx, s.db, "SELECT * FROM $id", map[string]any{
		"id": listRecordID(ownerID, key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toModel(), nil
}

func (s *Store) PutList(ctx context.Context, ownerID string, doc *models.ListDocument) error {
	_, err := query[any](ctx, s.db, "UPSERT $id CONTENT $content RETURN NONE", map[string]any{
		"id":      listRecordID(ownerID, doc.Key),
		"content": newListRow(ownerID, doc),
	})
	if err != nil {
		return fmt.Errorf("failed to put list: %w", err)
	}
	return nil
}

func (s *Store) ListLists(ctx context.Context, ownerID string) ([]*models.ListDocument, error) {
	rows, err := query[listRow](ctx, s.db, "SELECT * FROM list WHERE owner = $owner", map[string]any{
		"owner": ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list lists: %w", err)
	}
	out := make([]*models.ListDocument, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

func (s *Store) DeleteList(ctx context.Context, ownerID, key string) error {
	_, err := query[any](ctx, s.db, "DELETE $id", map[string]any{
		"id": listRecordID(ownerID, key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	return nil
}

// PatchLists checks the targets up front so the usual failure comes back
// as a MissingListError, then applies every patch in one transaction
// whose guards catch lists deleted in between.
func (s *Store) PatchLists(ctx context.Context, ownerID string, patches []models.ListPatch) error {
	if len(patches) == 0 {
		return nil
	}

	existing, err := query[struct {
		Key string `json:"key"`
	}](ctx, s.db, "SELECT key FROM list WHERE owner = $owner", map[string]any{"owner": ownerID})
	if err != nil {
		return fmt.Errorf("failed to patch lists: %w", err)
	}
	keys := make(map[string]bool, len(existing))
	for _, row := range existing {
		keys[row.Key] = true
	}
	for _, p := range patches {
		if !keys[p.Key] {
			return fmt.Errorf("failed to patch lists: %w", &store.MissingListError{OwnerID: ownerID, Key: p.Key})
		}
	}

	var sql strings.Builder
	vars := make(map[string]any, 2*len(patches))
	sql.WriteString("BEGIN TRANSACTION;\n")
	for i, p := range patches {
		id, patch := fmt.Sprintf("id%d", i), fmt.Sprintf("patch%d", i)
		vars[id] = listRecordID(ownerID, p.Key)
		vars[patch] = newPatchRow(p)
		fmt.Fprintf(&sql, "IF !record::exists($%s) { THROW 'list does not exist' };\n", id)
		fmt.Fprintf(&sql, "UPDATE $%s MERGE $%s RETURN NONE;\n", id, patch)
	}
	sql.WriteString("COMMIT TRANSACTION;")

	if _, err := query[any](ctx, s.db, sql.String(), vars); err != nil {
		return fmt.Errorf("failed to patch lists: %w", err)
	}
	return nil
}

func (s *Store) CreateShare(ctx context.Context, snap *models.SharedSnapshot) error {
	if snap.ID.IsZero() {
		snap.ID = models.NewShareID()
	}
	_, err := query[any](ctx, s.db, "CREATE $id CONTENT $content RETURN NONE", map[string]any{
		"id":      snap.ID.RecordID(),
		"content": newShareContent(snap),
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return &store.DuplicateShareError{ID: snap.ID}
		}
		return fmt.Errorf("failed to create share: %w", err)
	}
	return nil
}

func (s *Store) GetShare(ctx context.Context, id models.ShareID) (*models.SharedSnapshot, error) {
	rows, err := query[shareRow](ctx, s.db, "SELECT * FROM $id", map[string]any{
		"id": id.RecordID(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get share: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toModel(), nil
}

func (s *Store) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	rows, err := query[profileRow](ctx, s.db, "SELECT * FROM $id", map[string]any{
		"id": profileRecordID(uid),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toModel(), nil
}

func (s *Store) PutProfile(ctx context.Context, profile *models.Profile) error {
	_, err := query[any](ctx, s.db, "UPSERT $id CONTENT $content RETURN NONE", map[string]any{
		"id":      profileRecordID(profile.UID),
		"content": newProfileRow(profile),
	})
	if err != nil {
		return fmt.Errorf("failed to put profile: %w", err)
	}
	return nil
}

func window(since, until time.Time) map[string]any {
	return map[string]any{
		"since": datetime(since),
		"until": datetime(until),
	}
}

func (s *Store) ListModifiedLists(ctx context.Context, since, until time.Time) ([]models.ListRef, error) {
	rows, err := query[struct {
		Owner string `json:"owner"`
		Key   string `json:"key"`
	}](ctx, s.db, "SELECT owner, key FROM list WHERE updatedAt >= $since AND updatedAt < $until", window(since, until))
	if err != nil {
		return nil, fmt.Errorf("failed to list modified lists: %w", err)
	}
	refs := make([]models.ListRef, 0, len(rows))
	for _, r := range rows {
		refs = append(refs, models.ListRef{OwnerID: r.Owner, Key: r.Key})
	}
	return refs, nil
}

func (s *Store) ListModifiedShareIDs(ctx context.Context, since, until time.Time) ([]models.ShareID, error) {
	rows, err := query[struct {
		ID models.ShareID `json:"id"`
	}](ctx, s.db, "SELECT id FROM shared_list WHERE createdAt >= $since AND createdAt < $until", window(since, until))
	if err != nil {
		return nil, fmt.Errorf("failed to list modified shares: %w", err)
	}
	ids := make([]models.ShareID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (s *Store) ListModifiedProfileIDs(ctx context.Context, since, until time.Time) ([]string, error) {
	rows, err := query[struct {
		UID string `json:"uid"`
	}](ctx, s.db, "SELECT uid FROM profile WHERE updatedAt >= $since AND updatedAt < $until", window(since, until))
	if err != nil {
		return nil, fmt.Errorf("failed to list modified profiles: %w", err)
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UID)
	}
	return ids, nil
}
