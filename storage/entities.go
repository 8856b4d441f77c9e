package storage

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"notekeep-api/domain"
)

// Row key layout inside an owner partition. Notes live under "note:<id>" and
// title uniqueness claims under "title:<encoded title>". ';' sorts directly
// after ':', which gives the list scan a closed range over note rows only.
const (
	noteRowPrefix  = "note:"
	noteRowEnd     = "note;"
	titleRowPrefix = "title:"
)

func noteRowKey(id string) string {
	return noteRowPrefix + id
}

// titleRowKey encodes the exact title, case preserved. Base64url keeps the
// characters the table service forbids in row keys out of the key.
func titleRowKey(title string) string {
	return titleRowPrefix + base64.RawURLEncoding.EncodeToString([]byte(title))
}

type noteEntity struct {
	aztables.Entity
	Title       string
	Description string
	Tags        string
	Priority    string
	Archived    bool
	Starred     bool
	PublicID    string
	CreatedAt   string
	UpdatedAt   string
}

type titleClaimEntity struct {
	aztables.Entity
	NoteID string
}

type shareEntity struct {
	aztables.Entity
	OwnerID string
	NoteID  string
}

func encodeNote(n domain.Note) ([]byte, error) {
	tags, err := json.Marshal(n.Tags)
	if err != nil {
		return nil, err
	}
	return json.Marshal(noteEntity{
		Entity:      aztables.Entity{PartitionKey: n.OwnerID, RowKey: noteRowKey(n.ID)},
		Title:       n.Title,
		Description: n.Description,
		Tags:        string(tags),
		Priority:    string(n.Priority),
		Archived:    n.Archived,
		Starred:     n.Starred,
		PublicID:    n.PublicID,
		CreatedAt:   n.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   n.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func decodeNote(data []byte) (domain.Note, error) {
	var ent noteEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Note{}, err
	}
	n := domain.Note{
		ID:          strings.TrimPrefix(ent.RowKey, noteRowPrefix),
		Title:       ent.Title,
		Description: ent.Description,
		Tags:        []string{},
		Priority:    domain.Priority(ent.Priority),
		Archived:    ent.Archived,
		Starred:     ent.Starred,
		PublicID:    ent.PublicID,
		OwnerID:     ent.PartitionKey,
	}
	if ent.Tags != "" {
		if err := json.Unmarshal([]byte(ent.Tags), &n.Tags); err != nil {
			return domain.Note{}, err
		}
		if n.Tags == nil {
			n.Tags = []string{}
		}
	}
	if ent.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, ent.CreatedAt)
		if err != nil {
			return domain.Note{}, err
		}
		n.CreatedAt = t
	}
	if ent.UpdatedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, ent.UpdatedAt)
		if err != nil {
			return domain.Note{}, err
		}
		n.UpdatedAt = t
	}
	return n, nil
}
