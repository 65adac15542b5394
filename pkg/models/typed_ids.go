package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/oklog/ulid/v2"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ShareTable is the table/collection share snapshots live in.
const ShareTable = "shared_list"

// recordIDTag is the CBOR tag SurrealDB uses for record ids.
const recordIDTag = 8

// ShareID is the opaque identifier of a share snapshot. New ids are ULIDs,
// so they sort by creation time and carry no information about the owner.
// Shares created by the old web client use Firestore auto-ids instead, so
// any string that is a valid document id is accepted.
type ShareID struct {
	id string
}

// maxShareIDLength bounds ids read from the outside.
const maxShareIDLength = 128

func NewShareID() ShareID {
	return ShareID{id: ulid.Make().String()}
}

func ParseShareID(s string) (ShareID, error) {
	if len(s) > maxShareIDLength {
		return ShareID{}, fmt.Errorf("invalid share ID: longer than %d characters", maxShareIDLength)
	}
	if reason := invalidDocumentID(s); reason != "" {
		return ShareID{}, fmt.Errorf("invalid share ID: %s", reason)
	}
	return ShareID{id: s}, nil
}

func (s ShareID) String() string { return s.id }
func (s ShareID) IsZero() bool   { return s.id == "" }

func (s ShareID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.NewRecordID(ShareTable, s.id)
}

func (s ShareID) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.id)
}

func (s *ShareID) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	id, err := ParseShareID(str)
	if err != nil {
		return err
	}
	*s = id
	return nil
}

func (s ShareID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  recordIDTag,
		Content: []any{ShareTable, s.id},
	})
}

func (s *ShareID) UnmarshalCBOR(data []byte) error {
	raw, err := unmarshalCBORID(data, ShareTable)
	if err != nil {
		return err
	}
	id, err := ParseShareID(raw)
	if err != nil {
		return err
	}
	*s = id
	return nil
}

func (s ShareID) Value() (driver.Value, error) {
	if s.IsZero() {
		return nil, nil
	}
	return s.id, nil
}

func (s *ShareID) Scan(value any) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*s = ShareID{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan type %T into ShareID", value)
	}
	id, err := ParseShareID(raw)
	if err != nil {
		return err
	}
	*s = id
	return nil
}

func (ShareID) GormDataType() string { return "varchar(128)" }

// invalidDocumentID returns why s cannot be used as a document id, or ""
// when it can. Firestore reserves "." and ".." and ids of the form __x__,
// and a "/" would split the document path.
func invalidDocumentID(s string) string {
	switch {
	case s == "":
		return "must not be empty"
	case strings.Contains(s, "/"):
		return "must not contain '/'"
	case s == "." || s == "..":
		return "must not be '.' or '..'"
	case len(s) >= 4 && strings.HasPrefix(s, "__") && strings.HasSuffix(s, "__"):
		return "must not start and end with '__'"
	}
	return ""
}

// unmarshalCBORID decodes a SurrealDB record id and returns its id part.
// The server encodes record ids as tag 8 wrapping either [table, id] or
// the string "table:id".
func unmarshalCBORID(data []byte, expectedTable string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty CBOR data")
	}

	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return "", fmt.Errorf("failed to unmarshal CBOR tag: %w", err)
	}
	if tag.Number != recordIDTag {
		return "", fmt.Errorf("expected RecordID tag (%d), got %d", recordIDTag, tag.Number)
	}

	var table, id string
	switch content := tag.Content.(type) {
	case []any:
		if len(content) != 2 {
			return "", fmt.Errorf("invalid RecordID format: expected [table, id] array")
		}
		t, ok := content[0].(string)
		if !ok {
			return "", fmt.Errorf("invalid RecordID format: table name must be string")
		}
		v, ok := content[1].(string)
		if !ok {
			return "", fmt.Errorf("invalid RecordID format: ID must be string")
		}
		table, id = t, v
	case string:
		t, v, ok := strings.Cut(content, ":")
		if !ok {
			return "", fmt.Errorf("invalid RecordID format: %q", content)
		}
		table, id = t, strings.Trim(v, "`⟨⟩")
	default:
		return "", fmt.Errorf("invalid RecordID content type %T", tag.Content)
	}

	if table != expectedTable {
		return "", fmt.Errorf("expected table %s, got %s", expectedTable, table)
	}
	return id, nil
}
