package domain

// NoteEvent records a lifecycle transition of a note for the audit feed.
type NoteEvent struct {
	NoteID    string `json:"noteId"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

const (
	EventNoteCreated = "note-created"
	EventNoteUpdated = "note-updated"
	EventNoteDeleted = "note-deleted"
)

// NoteEventEnvelope wraps an event with the owner it happened to.
type NoteEventEnvelope struct {
	OwnerID string    `json:"ownerId"`
	Event   NoteEvent `json:"event"`
}
