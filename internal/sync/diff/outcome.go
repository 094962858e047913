package diff

import "github.com/dl-alexandre/gdmirror/internal/sync/scanner"

type Outcome string

const (
	// OutcomeOutOfScope is an entry outside the mirror root
	OutcomeOutOfScope Outcome = "out_of_scope"
	// OutcomeExcluded is an entry matched by an exclude pattern
	OutcomeExcluded Outcome = "excluded"
	// OutcomeDirectory is traversed, never transferred
	OutcomeDirectory Outcome = "directory"
	// OutcomeUnsupported has no downloadable content or no safe local path
	OutcomeUnsupported   Outcome = "unsupported"
	OutcomeSkip          Outcome = "skip"
	OutcomeTransfer      Outcome = "transfer"
	OutcomeWouldTransfer Outcome = "would_transfer"
)

// Reasons attached to a Decision
const (
	ReasonMissing      = "missing locally"
	ReasonSizeDiffers  = "size differs"
	ReasonMTimeDiffers = "modification time differs"
	ReasonUnchanged    = "unchanged"
	ReasonWorkspaceDoc = "google workspace document has no binary content"
	ReasonUnsafePath   = "name escapes the local root"
	// ReasonDuplicateName marks a later sibling whose local path is already taken
	ReasonDuplicateName = "another entry already maps to this local path"
)

// Decision is the diff verdict for one remote entry
type Decision struct {
	Outcome   Outcome
	Entry     scanner.RemoteEntry
	RelPath   string
	LocalPath string
	Local     *scanner.LocalEntry
	Reason    string
}

// NeedsTransfer reports whether the pipeline must run for this decision
func (d Decision) NeedsTransfer() bool {
	return d.Outcome == OutcomeTransfer
}
