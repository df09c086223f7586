package gitctl

import (
	"errors"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// ErrMissingIdentity is returned by commit operations when no author
// name/email has been configured.
var ErrMissingIdentity = errors.New("gitctl: author identity is not configured")

// ErrKind classifies git-layer failures into the conditions callers can
// recover from. Anything not recognized is KindUnknown and propagates
// unmodified.
type ErrKind int

const (
	// KindUnknown is an unclassified error; no automatic recovery.
	KindUnknown ErrKind = iota
	// KindDiverged means remote history is incompatible with a
	// fast-forward. Needs manual resolution; never auto-resolved.
	KindDiverged
	// KindMisconfigured means author/committer identity is missing.
	KindMisconfigured
	// KindNeedsPassword means credentials are missing or were rejected.
	KindNeedsPassword
)

func (k ErrKind) String() string {
	switch k {
	case KindDiverged:
		return "diverged"
	case KindMisconfigured:
		return "misconfigured"
	case KindNeedsPassword:
		return "needs-password"
	default:
		return "unknown"
	}
}

// Classify maps a git-layer error to its ErrKind.
func Classify(err error) ErrKind {
	if err == nil {
		return KindUnknown
	}
	switch {
	case errors.Is(err, git.ErrNonFastForwardUpdate):
		return KindDiverged
	case errors.Is(err, ErrMissingIdentity):
		return KindMisconfigured
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return KindNeedsPassword
	}
	// Push rejections surface as plain errors with the ref name appended,
	// so the sentinel comparison above does not catch them.
	if strings.Contains(err.Error(), "non-fast-forward update") {
		return KindDiverged
	}
	return KindUnknown
}
