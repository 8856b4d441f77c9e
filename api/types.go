package api

import (
	"context"

	"notekeep-api/domain"
)

// NoteStore abstracts persistence for handlers.
type NoteStore interface {
	CreateNote(ctx context.Context, ownerID string, draft domain.Draft) (domain.Note, error)
	ListNotes(ctx context.Context, ownerID string) ([]domain.Note, error)
	UpdateNote(ctx context.Context, ownerID, noteID string, patch domain.Patch) (domain.Note, error)
	DeleteNote(ctx context.Context, ownerID, noteID string) (domain.Note, error)
	ResolveShared(ctx context.Context, publicID string) (domain.PublicNote, error)
	EnqueueEvents(ctx context.Context, ownerID string, events []domain.NoteEvent) error
}

// NotFoundError marks storage errors that map to a 404 response.
type NotFoundError interface {
	error
	NotFound()
}

// DuplicateTitleError marks a create or update that collided with an existing
// title of the same owner.
type DuplicateTitleError interface {
	error
	DuplicateTitle() string
}

// Authenticator is implemented by types able to extract caller identities from headers.
type Authenticator interface {
	IdentityFromAuthHeader(string) (Identity, error)
}

// Identity is the verified caller of an owner-scoped request. Only ID is
// guaranteed to be present; Name and Email are carried when the token has them.
type Identity struct {
	ID    string
	Name  string
	Email string
}

const noteBodyMaxSize = 64 * 1024

type noteResponse struct {
	Message string      `json:"message"`
	Note    domain.Note `json:"note"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}
