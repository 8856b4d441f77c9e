package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"notekeep-api/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store NoteStore, auth Authenticator, logger *log.Logger) {
	e.POST("/notes/add", addNote(store, auth))
	e.GET("/notes/fetch", fetchNotes(store, auth, logger))
	e.PUT("/notes/update/:id", updateNote(store, auth))
	e.DELETE("/notes/delete/:id", deleteNote(store, auth))
	e.GET("/notes/share/:publicId", sharedNote(store))
	e.GET("/healthz", healthz())

	initEventPublisher(store, logger)
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		//TODO: ping table storage once the SDK exposes a cheap liveness call
		return c.NoContent(http.StatusOK)
	}
}

func addNote(store NoteStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		ident, err := auth.IdentityFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}

		var draft domain.Draft
		if err := decodeBody(c.Request().Body, &draft); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		note, err := store.CreateNote(ctx, ident.ID, draft)
		if err != nil {
			return writeNoteError(c, err, "Error adding the note")
		}

		publishNoteEvent(store, ident.ID, domain.EventNoteCreated, note.ID)
		return c.JSON(http.StatusCreated, noteResponse{Message: "Note added successfully", Note: note})
	}
}

func fetchNotes(store NoteStore, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newNoteRequestMetrics(ctx, logger)
		if spanCtx != nil {
			req := c.Request().WithContext(spanCtx)
			c.SetRequest(req)
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		ident, authErr := auth.IdentityFromAuthHeader(c.Request().Header.Get("Authorization"))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.JSON(http.StatusUnauthorized, errorResponse{Error: authErr.Error()})
			return err
		}

		fetchStart := time.Now()
		notes, fetchErr := store.ListNotes(ctx, ident.ID)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.JSON(http.StatusInternalServerError, errorResponse{Error: "Error fetching the notes"})
			return err
		}
		metrics.SetNotesReturned(len(notes))
		if notes == nil {
			notes = []domain.Note{}
		}

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, notes)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func updateNote(store NoteStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		ident, err := auth.IdentityFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}

		var patch domain.Patch
		if err := decodeBody(c.Request().Body, &patch); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		note, err := store.UpdateNote(ctx, ident.ID, c.Param("id"), patch)
		if err != nil {
			return writeNoteError(c, err, "Error updating the note")
		}

		publishNoteEvent(store, ident.ID, domain.EventNoteUpdated, note.ID)
		return c.JSON(http.StatusOK, noteResponse{Message: "Note updated successfully", Note: note})
	}
}

func deleteNote(store NoteStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		ident, err := auth.IdentityFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}

		note, err := store.DeleteNote(ctx, ident.ID, c.Param("id"))
		if err != nil {
			return writeNoteError(c, err, "Error deleting note")
		}

		publishNoteEvent(store, ident.ID, domain.EventNoteDeleted, note.ID)
		return c.JSON(http.StatusOK, messageResponse{Message: "Note deleted successfully"})
	}
}

// sharedNote serves the public projection of a note. No identity is involved
// on this route; the public id is the only capability required.
func sharedNote(store NoteStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		view, err := store.ResolveShared(c.Request().Context(), c.Param("publicId"))
		if err != nil {
			var nf NotFoundError
			if errors.As(err, &nf) {
				return c.JSON(http.StatusNotFound, messageResponse{Message: "Note not found"})
			}
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Server error"})
		}
		return c.JSON(http.StatusOK, view)
	}
}

func decodeBody(r io.Reader, v any) error {
	lr := io.LimitReader(r, noteBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	return dec.Decode(v)
}

// writeNoteError maps storage and validation failures on the owner-scoped
// routes to their response. A note that does not exist and a note owned by
// someone else produce the same 404 body.
func writeNoteError(c echo.Context, err error, fallback string) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: verr.Error()})
	}
	var dup DuplicateTitleError
	if errors.As(err, &dup) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: dup.Error()})
	}
	var nf NotFoundError
	if errors.As(err, &nf) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "Note not found or you are not authorized"})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: fallback})
}
