package storage

import (
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

type notFoundError struct {
	msg string
}

func (e *notFoundError) Error() string { return e.msg }

// NotFound marks the error for handler-side status mapping.
func (e *notFoundError) NotFound() {}

// ErrNoteNotFound covers both a note that never existed and a note owned by
// another user. The two cases are indistinguishable on purpose.
var ErrNoteNotFound error = &notFoundError{msg: "note not found"}

// ErrShareNotFound means the public id resolves to nothing, either because it
// was never issued or because the note behind it is gone.
var ErrShareNotFound error = &notFoundError{msg: "shared note not found"}

// DuplicateTitleError reports a title already claimed by another note of the
// same owner. The claim is checked by the table service at commit time.
type DuplicateTitleError struct {
	Title string
}

func (e *DuplicateTitleError) Error() string {
	return fmt.Sprintf("a note titled %q already exists", e.Title)
}

// DuplicateTitle returns the conflicting title.
func (e *DuplicateTitleError) DuplicateTitle() string { return e.Title }

func statusCode(err error) int {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}
