package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/google/uuid"

	"notekeep-api/domain"
)

// Storage persists notes in Azure Tables, partitioned by owner. The owner id
// is the partition key of every note write, so the authorization check and
// the mutation are the same storage operation: a foreign note and a missing
// note produce the same 404 from the table service.
type Storage struct {
	notes      *aztables.Client
	shares     *aztables.Client
	eventQueue *azqueue.QueueClient
}

// New creates a Storage instance from the given connection string.
func New(connStr, notesTable, sharesTable, eventsQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	eq, err := azqueue.NewQueueClientFromConnectionString(connStr, eventsQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{
		notes:      svc.NewClient(notesTable),
		shares:     svc.NewClient(sharesTable),
		eventQueue: eq,
	}, nil
}

// CreateNote validates and normalizes the draft, assigns ids and timestamps
// and commits the note together with its title claim in one partition
// transaction. Two concurrent creates of the same title under one owner race
// at commit: the second batch fails with a conflict, there is no pre-check.
func (s *Storage) CreateNote(ctx context.Context, ownerID string, draft domain.Draft) (domain.Note, error) {
	if err := draft.Normalize(); err != nil {
		return domain.Note{}, err
	}
	now := time.Now().UTC()
	n := domain.Note{
		ID:          uuid.NewString(),
		Title:       draft.Title,
		Description: draft.Description,
		Tags:        draft.Tags,
		Priority:    draft.Priority,
		Archived:    draft.Archived,
		Starred:     draft.Starred,
		PublicID:    uuid.NewString(),
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	shareBytes, err := json.Marshal(shareEntity{
		Entity:  aztables.Entity{PartitionKey: n.PublicID, RowKey: n.PublicID},
		OwnerID: ownerID,
		NoteID:  n.ID,
	})
	if err != nil {
		return domain.Note{}, err
	}
	if _, err := s.shares.AddEntity(ctx, shareBytes, nil); err != nil {
		return domain.Note{}, err
	}

	claimBytes, err := json.Marshal(titleClaimEntity{
		Entity: aztables.Entity{PartitionKey: ownerID, RowKey: titleRowKey(n.Title)},
		NoteID: n.ID,
	})
	if err != nil {
		return domain.Note{}, err
	}
	noteBytes, err := encodeNote(n)
	if err != nil {
		return domain.Note{}, err
	}

	actions := []aztables.TransactionAction{
		{ActionType: aztables.TransactionTypeAdd, Entity: claimBytes},
		{ActionType: aztables.TransactionTypeAdd, Entity: noteBytes},
	}
	if _, err := s.notes.SubmitTransaction(ctx, actions, nil); err != nil {
		// The note never became visible; retire the unused public id.
		s.dropShare(ctx, n.PublicID)
		if statusCode(err) == http.StatusConflict {
			return domain.Note{}, &DuplicateTitleError{Title: n.Title}
		}
		return domain.Note{}, err
	}
	return n, nil
}

// ListNotes returns every note of the owner, newest first.
func (s *Storage) ListNotes(ctx context.Context, ownerID string) ([]domain.Note, error) {
	filter := "PartitionKey eq '" + escapeKey(ownerID) + "' and RowKey ge '" + noteRowPrefix + "' and RowKey lt '" + noteRowEnd + "'"
	pager := s.notes.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	notes := []domain.Note{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			n, err := decodeNote(e)
			if err != nil {
				return nil, err
			}
			notes = append(notes, n)
		}
	}
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
	return notes, nil
}

// UpdateNote applies the mutable fields present in the patch. The write is
// keyed by the caller's partition, so updating a foreign or deleted note is
// the table's 404. Concurrent updates are last-write-wins; a title change
// swaps the uniqueness claim in the same transaction as the note write.
func (s *Storage) UpdateNote(ctx context.Context, ownerID, noteID string, patch domain.Patch) (domain.Note, error) {
	if err := patch.Normalize(); err != nil {
		return domain.Note{}, err
	}
	n, err := s.getNote(ctx, ownerID, noteID)
	if err != nil {
		return domain.Note{}, err
	}
	oldTitle := n.Title
	patch.Apply(&n)
	n.UpdatedAt = time.Now().UTC()

	noteBytes, err := encodeNote(n)
	if err != nil {
		return domain.Note{}, err
	}

	if n.Title != oldTitle {
		newClaim, err := json.Marshal(titleClaimEntity{
			Entity: aztables.Entity{PartitionKey: ownerID, RowKey: titleRowKey(n.Title)},
			NoteID: n.ID,
		})
		if err != nil {
			return domain.Note{}, err
		}
		oldClaim, err := json.Marshal(aztables.Entity{PartitionKey: ownerID, RowKey: titleRowKey(oldTitle)})
		if err != nil {
			return domain.Note{}, err
		}
		actions := []aztables.TransactionAction{
			{ActionType: aztables.TransactionTypeAdd, Entity: newClaim},
			{ActionType: aztables.TransactionTypeUpdateReplace, Entity: noteBytes},
			{ActionType: aztables.TransactionTypeDelete, Entity: oldClaim},
		}
		if _, err := s.notes.SubmitTransaction(ctx, actions, nil); err != nil {
			switch statusCode(err) {
			case http.StatusConflict:
				return domain.Note{}, &DuplicateTitleError{Title: n.Title}
			case http.StatusNotFound:
				return domain.Note{}, ErrNoteNotFound
			}
			return domain.Note{}, err
		}
		return n, nil
	}

	if _, err := s.notes.UpdateEntity(ctx, noteBytes, &aztables.UpdateEntityOptions{UpdateMode: aztables.UpdateModeReplace}); err != nil {
		if statusCode(err) == http.StatusNotFound {
			return domain.Note{}, ErrNoteNotFound
		}
		return domain.Note{}, err
	}
	return n, nil
}

// DeleteNote removes the note and its title claim in one partition
// transaction, then retires the share pointer. The deleted note is returned
// so callers can evict caches and emit events for what actually went away.
func (s *Storage) DeleteNote(ctx context.Context, ownerID, noteID string) (domain.Note, error) {
	n, err := s.getNote(ctx, ownerID, noteID)
	if err != nil {
		return domain.Note{}, err
	}

	noteRow, err := json.Marshal(aztables.Entity{PartitionKey: ownerID, RowKey: noteRowKey(noteID)})
	if err != nil {
		return domain.Note{}, err
	}
	claimRow, err := json.Marshal(aztables.Entity{PartitionKey: ownerID, RowKey: titleRowKey(n.Title)})
	if err != nil {
		return domain.Note{}, err
	}
	actions := []aztables.TransactionAction{
		{ActionType: aztables.TransactionTypeDelete, Entity: noteRow},
		{ActionType: aztables.TransactionTypeDelete, Entity: claimRow},
	}
	if _, err := s.notes.SubmitTransaction(ctx, actions, nil); err != nil {
		if statusCode(err) == http.StatusNotFound {
			return domain.Note{}, ErrNoteNotFound
		}
		return domain.Note{}, err
	}

	// A leftover pointer still resolves to 404 once the note row is gone.
	s.dropShare(ctx, n.PublicID)
	return n, nil
}

// ResolveShared maps a public id to the share projection of its note. No
// identity is involved; a deleted and a never-issued id fail identically.
func (s *Storage) ResolveShared(ctx context.Context, publicID string) (domain.PublicNote, error) {
	resp, err := s.shares.GetEntity(ctx, publicID, publicID, nil)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return domain.PublicNote{}, ErrShareNotFound
		}
		return domain.PublicNote{}, err
	}
	var ent shareEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.PublicNote{}, err
	}
	n, err := s.getNote(ctx, ent.OwnerID, ent.NoteID)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			return domain.PublicNote{}, ErrShareNotFound
		}
		return domain.PublicNote{}, err
	}
	return n.Public(), nil
}

// EnqueueEvents publishes note lifecycle events to the audit queue.
func (s *Storage) EnqueueEvents(ctx context.Context, ownerID string, events []domain.NoteEvent) error {
	for _, ev := range events {
		env := domain.NoteEventEnvelope{OwnerID: ownerID, Event: ev}
		data, err := json.Marshal(env)
		if err != nil {
			return err
		}
		if _, err := s.eventQueue.EnqueueMessage(ctx, string(data), nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) getNote(ctx context.Context, ownerID, noteID string) (domain.Note, error) {
	resp, err := s.notes.GetEntity(ctx, ownerID, noteRowKey(noteID), nil)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return domain.Note{}, ErrNoteNotFound
		}
		return domain.Note{}, err
	}
	return decodeNote(resp.Value)
}

func (s *Storage) dropShare(ctx context.Context, publicID string) {
	_, _ = s.shares.DeleteEntity(ctx, publicID, publicID, nil)
}

// escapeKey doubles single quotes for use inside an OData filter literal.
func escapeKey(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}
