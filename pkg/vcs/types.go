package vcs

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Signature identifies the author and committer of a revision.
type Signature struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate reports whether the signature can be written into a commit header.
func (s Signature) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidSignature)
	}
	if strings.TrimSpace(s.Email) == "" {
		return fmt.Errorf("%w: email cannot be empty", ErrInvalidSignature)
	}
	if strings.ContainsAny(s.Name, "<>\n") || strings.ContainsAny(s.Email, "<>\n") {
		return fmt.Errorf("%w: %q <%s> contains angle brackets or newlines", ErrInvalidSignature, s.Name, s.Email)
	}
	return nil
}

func (s Signature) object(when time.Time) object.Signature {
	return object.Signature{Name: s.Name, Email: s.Email, When: when}
}

// CommitRecord describes a revision created by the commit engine.
type CommitRecord struct {
	Hash      plumbing.Hash `json:"hash"`
	Parent    plumbing.Hash `json:"parent,omitempty"`
	HasParent bool          `json:"has_parent"`
	MergeHead plumbing.Hash `json:"merge_head,omitempty"`
	Message   string        `json:"message"`
	Author    Signature     `json:"author"`
	When      time.Time     `json:"when"`
	Branch    string        `json:"branch"`
}

// Analysis classifies the relationship between a local and a fetched tip.
type Analysis int

const (
	// AnalysisUpToDate means the fetched tip is already contained locally.
	AnalysisUpToDate Analysis = iota
	// AnalysisFastForward means the local tip is an ancestor of the fetched tip.
	AnalysisFastForward
	// AnalysisNormal means both sides have commits the other lacks.
	AnalysisNormal
	// AnalysisUnborn means there is no local commit or no common history.
	AnalysisUnborn
)

func (a Analysis) String() string {
	switch a {
	case AnalysisUpToDate:
		return "up-to-date"
	case AnalysisFastForward:
		return "fast-forward"
	case AnalysisNormal:
		return "normal"
	case AnalysisUnborn:
		return "unborn"
	default:
		return fmt.Sprintf("analysis(%d)", int(a))
	}
}

// MergeOutcome is the result of applying a merge analysis.
type MergeOutcome int

const (
	// OutcomeNoOp means nothing had to change.
	OutcomeNoOp MergeOutcome = iota
	// OutcomeFastForwarded means the branch moved to the fetched tip.
	OutcomeFastForwarded
	// OutcomeMerged means a two-parent merge commit was created.
	OutcomeMerged
	// OutcomeConflicts means conflicts were written to the working tree and no commit was made.
	OutcomeConflicts
)

func (o MergeOutcome) String() string {
	switch o {
	case OutcomeNoOp:
		return "no-op"
	case OutcomeFastForwarded:
		return "fast-forwarded"
	case OutcomeMerged:
		return "merged"
	case OutcomeConflicts:
		return "conflicts"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Conflict describes one path that could not be merged automatically.
type Conflict struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	// SideFile holds the version that could not stay at Path, when the
	// conflict cannot be expressed with markers. Removing or renaming it
	// resolves the conflict.
	SideFile string `json:"side_file,omitempty"`
}

// MergeResult reports what Merge did.
type MergeResult struct {
	Analysis  Analysis      `json:"analysis"`
	Outcome   MergeOutcome  `json:"outcome"`
	Head      plumbing.Hash `json:"head"`
	Previous  plumbing.Hash `json:"previous,omitempty"`
	Conflicts []Conflict    `json:"conflicts,omitempty"`
}

// TransferStats summarizes what a fetch moved. Informational only.
type TransferStats struct {
	ObjectsReceived int   `json:"objects_received"`
	ObjectsReused   int   `json:"objects_reused"`
	BytesReceived   int64 `json:"bytes_received"`
}

func (s TransferStats) String() string {
	return fmt.Sprintf("%d objects received, %d reused, %d bytes", s.ObjectsReceived, s.ObjectsReused, s.BytesReceived)
}

// FetchResult reports the fetched tip of the tracked branch.
type FetchResult struct {
	Remote string        `json:"remote"`
	Ref    string        `json:"ref"`
	Tip    plumbing.Hash `json:"tip"`
	// RemoteEmpty is set when the remote has no such branch yet.
	RemoteEmpty bool          `json:"remote_empty"`
	Stats       TransferStats `json:"stats"`
}

// SyncResult combines the fetch and merge halves of a pull.
type SyncResult struct {
	Fetch *FetchResult `json:"fetch"`
	Merge *MergeResult `json:"merge"`
}

// PushOutcome is the result of a push attempt.
type PushOutcome int

const (
	// PushPushed means the remote branch was updated.
	PushPushed PushOutcome = iota
	// PushUpToDate means the remote already had the local tip.
	PushUpToDate
	// PushRemoteMissing means no remote with the configured name exists.
	PushRemoteMissing
)

func (o PushOutcome) String() string {
	switch o {
	case PushPushed:
		return "pushed"
	case PushUpToDate:
		return "up-to-date"
	case PushRemoteMissing:
		return "remote-missing"
	default:
		return fmt.Sprintf("push(%d)", int(o))
	}
}

// PushResult reports what Push did.
type PushResult struct {
	Outcome PushOutcome   `json:"outcome"`
	Remote  string        `json:"remote"`
	Ref     string        `json:"ref"`
	Head    plumbing.Hash `json:"head"`
}

// CredentialProvider resolves transport credentials for a remote URL.
// Implementations build a fresh AuthMethod for every call.
type CredentialProvider interface {
	Resolve(remoteURL string) (transport.AuthMethod, error)
}

// FetchOptions configures Fetch and Pull.
type FetchOptions struct {
	Remote      string
	Branch      string
	Credentials CredentialProvider
	// Progress receives the remote's sideband progress messages. Optional.
	Progress io.Writer
}

// MergeOptions configures Merge.
type MergeOptions struct {
	Branch string
	// Signature is used for merge commits when the repository has no
	// user.name / user.email configured.
	Signature Signature
}

// PullOptions configures Pull.
type PullOptions struct {
	FetchOptions
	Signature Signature
}

// PushOptions configures Push.
type PushOptions struct {
	Remote      string
	Branch      string
	Credentials CredentialProvider
	// Progress receives the remote's sideband progress messages. Optional.
	Progress io.Writer
}
