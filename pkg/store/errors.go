package store

import (
	"fmt"

	"github.com/odvcencio/shelf/pkg/gitctl"
)

// IDTakenError reports a create for an id that already has a stored object.
// Create never overwrites.
type IDTakenError struct {
	ID string
}

func (e *IDTakenError) Error() string {
	return fmt.Sprintf("object id %q is already taken", e.ID)
}

// CommitError wraps a classified git-layer failure raised while recording a
// store mutation, distinguishing recoverable sync/auth conditions from true
// commit failures.
type CommitError struct {
	Kind gitctl.ErrKind
	Op   string
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("%s: commit failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }
